package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"starquiz-service/internal/domain"
)

type countingLoader struct {
	mu    sync.Mutex
	loads int
	keys  map[int64]map[int64]domain.QuestionKey
}

func (l *countingLoader) LoadQuizKey(_ context.Context, quizID int64) (map[int64]domain.QuestionKey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	keys, ok := l.keys[quizID]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	return keys, nil
}

func (l *countingLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func newCacheFixture(t *testing.T) (*AnswerKeyCache, *countingLoader, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingLoader{keys: map[int64]map[int64]domain.QuestionKey{
		1: {
			10: {QuestionID: 10, CorrectOptionID: 101, StarsReward: 2},
			11: {QuestionID: 11, CorrectOptionID: 111, StarsReward: 1},
		},
		2: {
			20: {QuestionID: 20, CorrectOptionID: 201, StarsReward: 1},
		},
	}}
	return NewAnswerKeyCache(client, loader, time.Minute), loader, mr
}

func TestResolveFillsCacheOnce(t *testing.T) {
	cache, loader, mr := newCacheFixture(t)
	ctx := context.Background()

	key, err := cache.Resolve(ctx, 1, 10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if key.CorrectOptionID != 101 || key.RewardWeight() != 2 {
		t.Fatalf("unexpected key %+v", key)
	}
	if !mr.Exists("quiz:1:answers") || !mr.Exists("quiz:1:rewards") {
		t.Fatalf("expected quiz hashes in redis")
	}

	// Second resolve for the same quiz hits the cache.
	if _, err := cache.Resolve(ctx, 1, 11); err != nil {
		t.Fatalf("resolve cached: %v", err)
	}
	if loader.loadCount() != 1 {
		t.Fatalf("expected one backing load, got %d", loader.loadCount())
	}
}

func TestResolveAfterExpiryReloads(t *testing.T) {
	cache, loader, mr := newCacheFixture(t)
	ctx := context.Background()

	if _, err := cache.Resolve(ctx, 1, 10); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := cache.Resolve(ctx, 1, 10); err != nil {
		t.Fatalf("resolve after expiry: %v", err)
	}
	if loader.loadCount() != 2 {
		t.Fatalf("expected reload after ttl, got %d loads", loader.loadCount())
	}
}

func TestResolveUnknownQuestion(t *testing.T) {
	cache, _, _ := newCacheFixture(t)
	if _, err := cache.Resolve(context.Background(), 1, 9999); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestResolveDoesNotLeakAcrossQuizzes(t *testing.T) {
	cache, _, _ := newCacheFixture(t)
	ctx := context.Background()

	// Warm both quizzes, then ask for quiz 1's question under quiz 2.
	if _, err := cache.Resolve(ctx, 1, 10); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := cache.Resolve(ctx, 2, 20); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := cache.Resolve(ctx, 2, 10); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question 10 rejected under quiz 2, got %v", err)
	}
}

func TestResolveConcurrentMissesLoadOnce(t *testing.T) {
	cache, loader, _ := newCacheFixture(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Resolve(ctx, 1, 10); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("resolve: %v", err)
	}
	if loader.loadCount() != 1 {
		t.Fatalf("expected single flight to load once, got %d", loader.loadCount())
	}
}

func TestRewardDefaultsToOne(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	// Hand-seeded cache with an answers hash but no rewards entry.
	mr.HSet("quiz:7:answers", "70", "700")
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewAnswerKeyCache(client, &countingLoader{}, time.Minute)

	key, err := cache.Resolve(context.Background(), 7, 70)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if key.RewardWeight() != 1 {
		t.Fatalf("expected default weight 1, got %d", key.RewardWeight())
	}
}

package redis

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"starquiz-service/internal/domain"
)

// KeyLoader fetches a quiz's answer key from the backing store.
type KeyLoader interface {
	LoadQuizKey(ctx context.Context, quizID int64) (map[int64]domain.QuestionKey, error)
}

// AnswerKeyCache is an app.QuestionResolver that caches each quiz's answer
// key in Redis and falls back to a loader on cache miss.
// Keys are stored as: HSET quiz:{quizID}:answers {questionID} {correctOptionID}
// Rewards as:         HSET quiz:{quizID}:rewards {questionID} {starsReward}
// Content is immutable from the attempt engine's perspective, so stale
// entries only ever outlive an admin edit by the TTL.
type AnswerKeyCache struct {
	client *redis.Client
	loader KeyLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerKeyCache(client *redis.Client, loader KeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerKeyCache) Resolve(ctx context.Context, quizID, questionID int64) (domain.QuestionKey, error) {
	answersKey := c.answersKey(quizID)
	rewardsKey := c.rewardsKey(quizID)

	answers, err := c.client.HGetAll(ctx, answersKey).Result()
	if err == nil && len(answers) > 0 {
		rewards, _ := c.client.HGetAll(ctx, rewardsKey).Result()
		return keyFromHashes(questionID, answers, rewards)
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		answers, err := c.client.HGetAll(ctx, answersKey).Result()
		if err == nil && len(answers) > 0 {
			rewards, _ := c.client.HGetAll(ctx, rewardsKey).Result()
			return cachedKeys{answers: answers, rewards: rewards}, nil
		}

		keys, err := c.loader.LoadQuizKey(ctx, quizID)
		if err != nil {
			return cachedKeys{}, err
		}

		answers = make(map[string]string, len(keys))
		rewards := make(map[string]string, len(keys))
		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		for id, key := range keys {
			field := strconv.FormatInt(id, 10)
			answers[field] = strconv.FormatInt(key.CorrectOptionID, 10)
			rewards[field] = strconv.Itoa(key.RewardWeight())
			pipe.HSet(ctx, answersKey, field, answers[field])
			pipe.HSet(ctx, rewardsKey, field, rewards[field])
		}
		if ttl > 0 && len(keys) > 0 {
			pipe.Expire(ctx, answersKey, ttl)
			pipe.Expire(ctx, rewardsKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return cachedKeys{answers: answers, rewards: rewards}, nil
	})
	if err != nil {
		return domain.QuestionKey{}, err
	}
	cached := result.(cachedKeys)
	return keyFromHashes(questionID, cached.answers, cached.rewards)
}

type cachedKeys struct {
	answers map[string]string
	rewards map[string]string
}

// keyFromHashes rebuilds the scoring key from the cached hashes. A missing
// field means the question is not part of this quiz.
func keyFromHashes(questionID int64, answers, rewards map[string]string) (domain.QuestionKey, error) {
	field := strconv.FormatInt(questionID, 10)
	raw, ok := answers[field]
	if !ok {
		return domain.QuestionKey{}, domain.ErrQuestionNotFound
	}
	correctID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return domain.QuestionKey{}, fmt.Errorf("corrupt answer key cache: %w", err)
	}
	reward := 1
	if rewardRaw, ok := rewards[field]; ok {
		if parsed, err := strconv.Atoi(rewardRaw); err == nil && parsed > 0 {
			reward = parsed
		}
	}
	return domain.QuestionKey{
		QuestionID:      questionID,
		CorrectOptionID: correctID,
		StarsReward:     reward,
	}, nil
}

func (c *AnswerKeyCache) answersKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":answers"
}

func (c *AnswerKeyCache) rewardsKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":rewards"
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

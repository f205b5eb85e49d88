package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"starquiz-service/internal/domain"
)

const (
	// DefaultRefillTarget is the star floor the periodic refill raises
	// every user to.
	DefaultRefillTarget = 6
	// DefaultRefillInterval is how often the refill cycle runs.
	DefaultRefillInterval = 4 * time.Hour
)

// EconomyService owns the currency operations that sit outside a quiz
// attempt: star package purchases and the periodic star refill.
type EconomyService struct {
	store Store
	log   *zap.Logger
}

func NewEconomyService(store Store, log *zap.Logger) *EconomyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EconomyService{store: store, log: log}
}

// BuyStarPackage checks the user can afford the named package, then applies
// the star grant and gem cost as one atomic balance mutation.
func (s *EconomyService) BuyStarPackage(ctx context.Context, userID int64, name string) (domain.PurchaseResult, error) {
	pkg, err := domain.LookupPackage(name)
	if err != nil {
		return domain.PurchaseResult{}, err
	}

	var res domain.PurchaseResult
	err = s.store.WithUserTx(ctx, userID, func(ctx context.Context, tx Tx) error {
		bal, err := tx.Balance(ctx)
		if err != nil {
			return err
		}
		if bal.Gems < pkg.GemsCost {
			return &domain.InsufficientGemsError{Stars: bal.Stars, Gems: bal.Gems}
		}
		stars, err := tx.AdjustStars(ctx, pkg.Stars)
		if err != nil {
			return err
		}
		gems, err := tx.AdjustGems(ctx, -pkg.GemsCost)
		if err != nil {
			return err
		}
		res = domain.PurchaseResult{Package: pkg.Name, Stars: stars, Gems: gems}
		return nil
	})
	if err != nil {
		return domain.PurchaseResult{}, err
	}
	s.log.Info("star package purchased",
		zap.Int64("user", userID),
		zap.String("package", pkg.Name),
		zap.Int("stars", res.Stars),
		zap.Int("gems", res.Gems))
	return res, nil
}

// RunRefillCycle raises every user below target to exactly target stars.
// Set-to-target makes the cycle idempotent and monotone: reruns and overlap
// with concurrent submissions never lower a balance.
func (s *EconomyService) RunRefillCycle(ctx context.Context, target int) (int, error) {
	updated, err := s.store.RefillStarsToTarget(ctx, target)
	if err != nil {
		s.log.Error("star refill cycle failed", zap.Error(err))
		return 0, err
	}
	s.log.Info("star refill cycle done", zap.Int("target", target), zap.Int("updated", updated))
	return updated, nil
}

// RunRefillLoop runs a refill cycle immediately and then on every tick of
// interval until ctx is canceled. Cycle failures are logged and the loop
// keeps going.
func (s *EconomyService) RunRefillLoop(ctx context.Context, interval time.Duration, target int) {
	if interval <= 0 {
		interval = DefaultRefillInterval
	}
	if target <= 0 {
		target = DefaultRefillTarget
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_, _ = s.RunRefillCycle(ctx, target)
	for {
		select {
		case <-ticker.C:
			_, _ = s.RunRefillCycle(ctx, target)
		case <-ctx.Done():
			return
		}
	}
}

package app_test

import (
	"context"
	"errors"
	"testing"

	"starquiz-service/internal/app"
	"starquiz-service/internal/domain"
	"starquiz-service/internal/infra/memory"
)

func TestBuyStarPackage(t *testing.T) {
	store := memory.NewStore()
	userID := store.AddUser("alice", 3, 12, false)
	economy := app.NewEconomyService(store, nil)

	res, err := economy.BuyStarPackage(context.Background(), userID, "medium")
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if res.Package != "medium" || res.Stars != 8 || res.Gems != 2 {
		t.Fatalf("expected 8 stars and 2 gems after medium package, got %+v", res)
	}
}

func TestBuyStarPackageInsufficientGems(t *testing.T) {
	store := memory.NewStore()
	userID := store.AddUser("alice", 3, 5, false)
	economy := app.NewEconomyService(store, nil)

	_, err := economy.BuyStarPackage(context.Background(), userID, "medium")
	var insufficient *domain.InsufficientGemsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientGemsError, got %v", err)
	}
	if insufficient.Stars != 3 || insufficient.Gems != 5 {
		t.Fatalf("expected current balances in error, got %+v", insufficient)
	}

	// Balances untouched.
	overview, err := store.HomeOverview(context.Background(), userID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Stars != 3 || overview.Gems != 5 {
		t.Fatalf("expected unchanged balances, got %+v", overview)
	}
}

func TestBuyStarPackageUnknownName(t *testing.T) {
	store := memory.NewStore()
	userID := store.AddUser("alice", 3, 100, false)
	economy := app.NewEconomyService(store, nil)

	if _, err := economy.BuyStarPackage(context.Background(), userID, "galactic"); !errors.Is(err, domain.ErrInvalidPackage) {
		t.Fatalf("expected ErrInvalidPackage, got %v", err)
	}
}

func TestBuyStarPackageUnknownUser(t *testing.T) {
	store := memory.NewStore()
	economy := app.NewEconomyService(store, nil)

	if _, err := economy.BuyStarPackage(context.Background(), 42, "small"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRunRefillCycle(t *testing.T) {
	store := memory.NewStore()
	low := store.AddUser("low", 2, 0, false)
	exact := store.AddUser("exact", 6, 0, false)
	high := store.AddUser("high", 30, 0, false)
	economy := app.NewEconomyService(store, nil)
	ctx := context.Background()

	updated, err := economy.RunRefillCycle(ctx, app.DefaultRefillTarget)
	if err != nil {
		t.Fatalf("refill: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 user refilled, got %d", updated)
	}

	for _, tc := range []struct {
		userID int64
		want   int
	}{
		{low, 6}, {exact, 6}, {high, 30},
	} {
		overview, err := store.HomeOverview(ctx, tc.userID)
		if err != nil {
			t.Fatalf("overview: %v", err)
		}
		if overview.Stars != tc.want {
			t.Fatalf("user %d: expected %d stars, got %d", tc.userID, tc.want, overview.Stars)
		}
	}

	// Rerun finds nothing to do.
	updated, err = economy.RunRefillCycle(ctx, app.DefaultRefillTarget)
	if err != nil {
		t.Fatalf("second refill: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected idempotent rerun, got %d updates", updated)
	}
}

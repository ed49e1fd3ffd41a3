package persistence_test

import (
	"context"
	"testing"

	"github.com/PocketRelay/Server-sub000/internal/model"
	"github.com/PocketRelay/Server-sub000/internal/persistence"
)

func TestPlayerCreateAndLookup(t *testing.T) {
	pool := setupTestDB(t)
	repo := persistence.NewPlayerRepository(pool)
	ctx := context.Background()

	hash := "hunter2-hash"
	p, err := repo.PlayerCreate(ctx, "Commander@Example.com", "Shepard", &hash)
	if err != nil {
		t.Fatalf("PlayerCreate: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("PlayerCreate returned zero id")
	}
	if p.Email != "commander@example.com" {
		t.Errorf("PlayerCreate lowercases email: got %q", p.Email)
	}

	byID, err := repo.PlayerByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("PlayerByID: %v", err)
	}
	if byID == nil || byID.DisplayName != "Shepard" {
		t.Fatalf("PlayerByID = %+v, want display name Shepard", byID)
	}

	byEmail, err := repo.PlayerByEmail(ctx, "COMMANDER@example.com")
	if err != nil {
		t.Fatalf("PlayerByEmail: %v", err)
	}
	if byEmail == nil || byEmail.ID != p.ID {
		t.Fatalf("PlayerByEmail case-insensitive lookup failed: got %+v", byEmail)
	}
}

func TestPlayerByIDMissingReturnsNilNotError(t *testing.T) {
	pool := setupTestDB(t)
	repo := persistence.NewPlayerRepository(pool)

	p, err := repo.PlayerByID(context.Background(), 999999)
	if err != nil {
		t.Fatalf("PlayerByID on missing row returned error: %v", err)
	}
	if p != nil {
		t.Fatalf("PlayerByID on missing row = %+v, want nil", p)
	}
}

func TestPlayerSetPasswordAndRole(t *testing.T) {
	pool := setupTestDB(t)
	repo := persistence.NewPlayerRepository(pool)
	ctx := context.Background()

	p, err := repo.PlayerCreate(ctx, "tali@example.com", "Tali", nil)
	if err != nil {
		t.Fatalf("PlayerCreate: %v", err)
	}
	if !p.IsUpstreamOrigin() {
		t.Fatalf("expected nil password hash to report upstream-origin account")
	}

	if err := repo.PlayerSetPassword(ctx, p.ID, "new-hash"); err != nil {
		t.Fatalf("PlayerSetPassword: %v", err)
	}
	if err := repo.PlayerSetRole(ctx, p.ID, model.RoleAdmin); err != nil {
		t.Fatalf("PlayerSetRole: %v", err)
	}

	reloaded, err := repo.PlayerByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("PlayerByID: %v", err)
	}
	if reloaded.PasswordHash == nil || *reloaded.PasswordHash != "new-hash" {
		t.Errorf("PlayerSetPassword did not persist: %+v", reloaded.PasswordHash)
	}
	if reloaded.Role != model.RoleAdmin {
		t.Errorf("PlayerSetRole did not persist: got %v", reloaded.Role)
	}
}

func TestPlayerDataRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	repo := persistence.NewPlayerRepository(pool)
	ctx := context.Background()

	p, err := repo.PlayerCreate(ctx, "garrus@example.com", "Garrus", nil)
	if err != nil {
		t.Fatalf("PlayerCreate: %v", err)
	}

	if _, ok, err := repo.PlayerDataGet(ctx, p.ID, "missing"); err != nil || ok {
		t.Fatalf("PlayerDataGet on missing key = (%v, %v), want (\"\", false)", ok, err)
	}

	if err := repo.PlayerDataSet(ctx, p.ID, "completion", "42"); err != nil {
		t.Fatalf("PlayerDataSet: %v", err)
	}
	// Overwrite exercises the ON CONFLICT upsert path.
	if err := repo.PlayerDataSet(ctx, p.ID, "completion", "43"); err != nil {
		t.Fatalf("PlayerDataSet (overwrite): %v", err)
	}

	value, ok, err := repo.PlayerDataGet(ctx, p.ID, "completion")
	if err != nil || !ok || value != "43" {
		t.Fatalf("PlayerDataGet = (%q, %v, %v), want (\"43\", true, nil)", value, ok, err)
	}

	all, err := repo.PlayerDataAll(ctx, p.ID)
	if err != nil {
		t.Fatalf("PlayerDataAll: %v", err)
	}
	if all["completion"] != "43" {
		t.Fatalf("PlayerDataAll = %v, want completion=43", all)
	}

	if err := repo.PlayerDataDelete(ctx, p.ID, "completion"); err != nil {
		t.Fatalf("PlayerDataDelete: %v", err)
	}
	if _, ok, err := repo.PlayerDataGet(ctx, p.ID, "completion"); err != nil || ok {
		t.Fatalf("PlayerDataGet after delete = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestGalaxyAtWarDefaultsWhenUnranked(t *testing.T) {
	pool := setupTestDB(t)
	repo := persistence.NewPlayerRepository(pool)
	ctx := context.Background()

	p, err := repo.PlayerCreate(ctx, "liara@example.com", "Liara", nil)
	if err != nil {
		t.Fatalf("PlayerCreate: %v", err)
	}

	gaw, err := repo.GalaxyAtWarGet(ctx, p.ID)
	if err != nil {
		t.Fatalf("GalaxyAtWarGet: %v", err)
	}
	if gaw.Level != 5000 || gaw.FootballLevel != 5000 || gaw.AllianceLevel != 5000 || gaw.CerberusLevel != 5000 {
		t.Fatalf("GalaxyAtWarGet default row = %+v, want all levels 5000", gaw)
	}
}

package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"crm/internal/domain/deal"
	"crm/internal/domain/turma"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClass() turma.Turma {
	return turma.Turma{
		ID: "class-1", Course: "Pilates", Mod1Code: "SP-M1", Mod1Date: fixedNow.AddDate(0, 0, 7),
		Mod2Code: "SP-M2", Mod2Date: fixedNow.AddDate(0, 1, 0), Status: turma.StatusOpen,
	}
}

func newDealDeps() (DealDeps, *memDealStore, *recordingCache, *memAuditStore) {
	store := newMemDealStore()
	cache := &recordingCache{}
	auditStore := &memAuditStore{}
	return DealDeps{
		DealStore:  store,
		ClassStore: newMemClassStore(testClass()),
		AuditStore: auditStore,
		Cache:      cache,
		Now:        nowFn,
	}, store, cache, auditStore
}

// TestCreateDeal normalizes codes, defaults the stage and invalidates the dashboard.
func TestCreateDeal(t *testing.T) {
	deps, store, cache, _ := newDealDeps()

	d, err := ExecuteCreateDeal(context.Background(), DealInput{
		Name: " Maria ", Email: "MARIA@crm.test", ClassCodeMod1: " sp-m1 ", ValueCents: 120000,
	}, deps)
	require.NoError(t, err)

	assert.Equal(t, deal.StageLead, d.Stage)
	assert.Equal(t, "SP-M1", d.ClassCodeMod1)
	assert.Equal(t, "maria@crm.test", d.Email)
	assert.Equal(t, fixedNow, d.CreatedAt)
	assert.Contains(t, store.byID, d.ID)
	assert.Equal(t, []string{DashboardCacheKey}, cache.deleted)
	assert.Len(t, cache.bumped, 1, "invalidation moves the key to a new generation")
}

// TestCreateDeal_ClassCodeChecks covers unknown codes and module mismatches.
func TestCreateDeal_ClassCodeChecks(t *testing.T) {
	tests := []struct {
		name    string
		input   DealInput
		wantErr error
	}{
		{"unknown code", DealInput{Name: "A", ClassCodeMod1: "NOPE"}, ErrUnknownClassCode},
		{"mod2 code as mod1", DealInput{Name: "A", ClassCodeMod1: "SP-M2"}, ErrClassModuleMismatch},
		{"mod1 code as mod2", DealInput{Name: "A", ClassCodeMod1: "SP-M1", ClassCodeMod2: "SP-M1"}, deal.ErrSameClassCode},
		{"won without class", DealInput{Name: "A", Stage: deal.StageWon}, deal.ErrWonWithoutClass},
		{"negative value", DealInput{Name: "A", ValueCents: -1}, deal.ErrNegativeValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, store, _, _ := newDealDeps()
			_, err := ExecuteCreateDeal(context.Background(), tt.input, deps)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, store.byID)
		})
	}
}

// TestUpdateDeal keeps the stage and refreshes UpdatedAt.
func TestUpdateDeal(t *testing.T) {
	deps, store, _, _ := newDealDeps()
	ctx := context.Background()
	d, err := ExecuteCreateDeal(ctx, DealInput{Name: "Carla", Stage: deal.StageContacted}, deps)
	require.NoError(t, err)

	later := fixedNow.AddDate(0, 0, 1)
	deps.Now = func() time.Time { return later }
	updated, err := ExecuteUpdateDeal(ctx, d.ID, DealInput{Name: "Carla Dias", City: "Rio", Stage: deal.StageWon}, deps)
	require.NoError(t, err)

	assert.Equal(t, deal.StageContacted, updated.Stage)
	assert.Equal(t, "Carla Dias", store.byID[d.ID].Name)
	assert.Equal(t, later, updated.UpdatedAt)
	assert.Equal(t, fixedNow, updated.CreatedAt)
}

// TestChangeDealStage follows the pipeline transitions.
func TestChangeDealStage(t *testing.T) {
	deps, store, _, _ := newDealDeps()
	ctx := context.Background()
	d, err := ExecuteCreateDeal(ctx, DealInput{Name: "João", ClassCodeMod1: "SP-M1"}, deps)
	require.NoError(t, err)

	_, err = ExecuteChangeDealStage(ctx, d.ID, deal.StageWon, deps)
	assert.ErrorIs(t, err, deal.ErrInvalidTransition)

	for _, next := range []string{deal.StageContacted, deal.StageNegotiation, deal.StageWon} {
		_, err := ExecuteChangeDealStage(ctx, d.ID, next, deps)
		require.NoError(t, err, "move to %s", next)
	}
	assert.Equal(t, deal.StageWon, store.byID[d.ID].Stage)

	_, err = ExecuteChangeDealStage(ctx, "missing", deal.StageLost, deps)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

// TestDeleteDeal requires an admin and records a warning audit event.
func TestDeleteDeal(t *testing.T) {
	deps, store, _, auditStore := newDealDeps()
	ctx := context.Background()
	d, err := ExecuteCreateDeal(ctx, DealInput{Name: "Pedro"}, deps)
	require.NoError(t, err)

	assert.ErrorIs(t, ExecuteDeleteDeal(ctx, d.ID, partnerActor, deps), ErrForbidden)
	assert.Contains(t, store.byID, d.ID)

	require.NoError(t, ExecuteDeleteDeal(ctx, d.ID, adminActor, deps))
	assert.NotContains(t, store.byID, d.ID)
	require.Len(t, auditStore.events, 1)
	assert.Equal(t, "deal", auditStore.events[0].ResourceType)
	assert.Equal(t, d.ID, auditStore.events[0].ResourceID)
}

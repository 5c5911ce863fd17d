package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/domain"
	"peace-cake-service/internal/infra/memory"
)

func newGameService(t *testing.T) (*app.GameService, *memory.CatalogStore) {
	t.Helper()
	catalog := memory.NewCatalogStore()
	catalog.Seed(domain.Profile{ID: "p1", Name: "Host", CreatedAt: fixedNow}, domain.Quiz{
		ID:        "quiz-1",
		ProfileID: "p1",
		Title:     "Arithmetic",
		Questions: []domain.Question{
			{ID: "q10", Prompt: "ten", Options: []string{}, Points: 10},
			{ID: "q7", Prompt: "seven", Options: []string{"a", "b"}, CorrectIndex: 0, Points: 7},
		},
	})
	engine := app.NewEngineWithClock(memory.NewSessionStore(), app.DefaultRules(), func() time.Time { return fixedNow })
	return app.NewGameService(engine, memory.NewQuestionCache(catalog, time.Minute), 20), catalog
}

func TestGameServiceCreateSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newGameService(t)

	_, err := svc.CreateSession(ctx, "missing", []string{"Red", "Blue"}, 0)
	require.ErrorIs(t, err, domain.ErrQuizNotFound)
	assert.Equal(t, 0, svc.ActiveSessions())

	snap, err := svc.CreateSession(ctx, "quiz-1", []string{"Red", "Blue"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, snap.TimerSeconds)

	snap, err = svc.CreateSession(ctx, "quiz-1", []string{"Red", "Blue"}, 45)
	require.NoError(t, err)
	assert.Equal(t, 45, snap.TimerSeconds)
	assert.Equal(t, 2, svc.ActiveSessions())
}

func TestGameServiceUsesCatalogPoints(t *testing.T) {
	ctx := context.Background()
	svc, _ := newGameService(t)
	snap, err := svc.CreateSession(ctx, "quiz-1", []string{"Red", "Blue"}, 0)
	require.NoError(t, err)

	_, err = svc.StartQuestion(ctx, snap.ID, "unknown")
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)

	_, err = svc.StartQuestion(ctx, snap.ID, "q7")
	require.NoError(t, err)
	resolved, err := svc.ResolveQuestion(ctx, snap.ID, "q7", domain.Resolution{
		TeamID:       snap.Teams[0].ID,
		Outcome:      domain.OutcomeIncorrect,
		StealAttempt: &domain.StealAttempt{TeamID: snap.Teams[1].ID, Outcome: domain.OutcomeCorrect},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resolved.Teams[1].Score)

	_, err = svc.StartQuestion(ctx, snap.ID, "q10")
	require.NoError(t, err)
	resolved, err = svc.ResolveQuestion(ctx, snap.ID, "q10", domain.Resolution{
		TeamID:  snap.Teams[1].ID,
		Outcome: domain.OutcomeCorrect,
	})
	require.NoError(t, err)
	assert.Equal(t, 13, resolved.Teams[1].Score)
	assert.Equal(t, 0, resolved.CurrentTurnIndex)

	turned, err := svc.SetActiveTurn(ctx, snap.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, turned.CurrentTurnIndex)

	got, err := svc.GetSession(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, turned, got)
}

func TestGameServiceRules(t *testing.T) {
	svc, _ := newGameService(t)
	assert.Equal(t, app.DefaultRules(), svc.Rules())
}

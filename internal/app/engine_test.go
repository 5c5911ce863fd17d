package app_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/domain"
	"peace-cake-service/internal/infra/memory"
)

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newEngine() *app.Engine {
	return app.NewEngineWithClock(memory.NewSessionStore(), app.DefaultRules(), func() time.Time { return fixedNow })
}

func TestCreateSessionEnforcesTeamCount(t *testing.T) {
	e := newEngine()

	for _, names := range [][]string{{"A"}, {"A", "B", "C", "D", "E"}, nil} {
		_, err := e.CreateSession("quiz-1", names, 30)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		require.ErrorIs(t, err, domain.ErrTeamCount)
	}
	assert.Equal(t, 0, e.SessionCount())

	snap, err := e.CreateSession("quiz-1", []string{"Red", "Blue", "Green", "Gold"}, 30)
	require.NoError(t, err)
	assert.Len(t, snap.Teams, 4)
	assert.Equal(t, 1, e.SessionCount())
}

func TestCreateSessionInitialState(t *testing.T) {
	e := newEngine()
	snap, err := e.CreateSession("quiz-1", []string{" Red ", "Blue"}, 30)
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "quiz-1", snap.QuizID)
	assert.Equal(t, 30, snap.TimerSeconds)
	assert.Equal(t, 0, snap.CurrentTurnIndex)
	assert.Empty(t, snap.UsedQuestionIDs)
	assert.Nil(t, snap.CurrentQuestionID)
	assert.Nil(t, snap.QuestionStartedAt)
	assert.Equal(t, "Red", snap.Teams[0].Name)
	assert.NotEqual(t, snap.Teams[0].ID, snap.Teams[1].ID)
	for _, team := range snap.Teams {
		assert.Zero(t, team.Score)
	}
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	e := newEngine()

	_, err := e.CreateSession("quiz-1", []string{"Red", "  "}, 30)
	require.ErrorIs(t, err, domain.ErrTeamName)

	_, err = e.CreateSession("quiz-1", []string{"Red", "Blue"}, -1)
	require.ErrorIs(t, err, domain.ErrTimer)

	assert.Equal(t, 0, e.SessionCount())
}

func TestUnknownSession(t *testing.T) {
	e := newEngine()

	_, err := e.GetSession("missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = e.StartQuestion("missing", "q1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.ResolveQuestion("missing", "q1", domain.Resolution{}, 10)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.SetActiveTurn("missing", 0)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = e.Subscribe("missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStartQuestion(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue")

	started, err := e.StartQuestion(snap.ID, "q1")
	require.NoError(t, err)
	require.NotNil(t, started.CurrentQuestionID)
	assert.Equal(t, "q1", *started.CurrentQuestionID)
	require.NotNil(t, started.QuestionStartedAt)
	assert.Equal(t, fixedNow, *started.QuestionStartedAt)

	_, err = e.StartQuestion(snap.ID, "q2")
	require.ErrorIs(t, err, domain.ErrQuestionInPlay)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	after, err := e.GetSession(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "q1", *after.CurrentQuestionID)
}

func TestResolveCorrectScoresAndRotates(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue")

	_, err := e.StartQuestion(snap.ID, "q1")
	require.NoError(t, err)

	resolved, err := e.ResolveQuestion(snap.ID, "q1", domain.Resolution{
		TeamID:  snap.Teams[0].ID,
		Outcome: domain.OutcomeCorrect,
	}, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, resolved.Teams[0].Score)
	assert.Equal(t, 0, resolved.Teams[1].Score)
	assert.Equal(t, []string{"q1"}, resolved.UsedQuestionIDs)
	assert.Nil(t, resolved.CurrentQuestionID)
	assert.Nil(t, resolved.QuestionStartedAt)
	assert.Equal(t, 1, resolved.CurrentTurnIndex)
}

func TestResolveIncorrectWithoutSteal(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue", "Green")

	play(t, e, snap.ID, "q1", domain.Resolution{TeamID: snap.Teams[0].ID, Outcome: domain.OutcomeIncorrect}, 10)

	after, err := e.GetSession(snap.ID)
	require.NoError(t, err)
	for _, team := range after.Teams {
		assert.Zero(t, team.Score)
	}
	assert.Equal(t, 1, after.CurrentTurnIndex)
	assert.Equal(t, []string{"q1"}, after.UsedQuestionIDs)
}

func TestResolveSteal(t *testing.T) {
	tests := []struct {
		name    string
		points  int
		outcome domain.Outcome
		want    int
	}{
		{"even points", 10, domain.OutcomeCorrect, 5},
		{"odd points truncate", 7, domain.OutcomeCorrect, 3},
		{"failed steal", 10, domain.OutcomeIncorrect, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine()
			snap := mustCreate(t, e, "Red", "Blue")

			resolved := play(t, e, snap.ID, "q1", domain.Resolution{
				TeamID:       snap.Teams[0].ID,
				Outcome:      domain.OutcomeIncorrect,
				StealAttempt: &domain.StealAttempt{TeamID: snap.Teams[1].ID, Outcome: tt.outcome},
			}, tt.points)
			assert.Equal(t, 0, resolved.Teams[0].Score)
			assert.Equal(t, tt.want, resolved.Teams[1].Score)
		})
	}
}

func TestResolveRejectsInvalidResolutionAtomically(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue")
	red, blue := snap.Teams[0].ID, snap.Teams[1].ID

	_, err := e.StartQuestion(snap.ID, "q1")
	require.NoError(t, err)
	before, err := e.GetSession(snap.ID)
	require.NoError(t, err)

	tests := []struct {
		name string
		res  domain.Resolution
		want error
	}{
		{"steal after correct", domain.Resolution{TeamID: red, Outcome: domain.OutcomeCorrect, StealAttempt: &domain.StealAttempt{TeamID: blue, Outcome: domain.OutcomeCorrect}}, domain.ErrStealNotAllowed},
		{"unknown outcome", domain.Resolution{TeamID: red, Outcome: "maybe"}, domain.ErrOutcome},
		{"unknown team", domain.Resolution{TeamID: "ghost", Outcome: domain.OutcomeCorrect}, domain.ErrTeamNotFound},
		{"unknown steal team", domain.Resolution{TeamID: red, Outcome: domain.OutcomeIncorrect, StealAttempt: &domain.StealAttempt{TeamID: "ghost", Outcome: domain.OutcomeCorrect}}, domain.ErrTeamNotFound},
		{"blank steal team", domain.Resolution{TeamID: red, Outcome: domain.OutcomeIncorrect, StealAttempt: &domain.StealAttempt{Outcome: domain.OutcomeCorrect}}, domain.ErrStealPayload},
		{"bad steal outcome", domain.Resolution{TeamID: red, Outcome: domain.OutcomeIncorrect, StealAttempt: &domain.StealAttempt{TeamID: blue, Outcome: "yes"}}, domain.ErrStealPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ResolveQuestion(snap.ID, "q1", tt.res, 10)
			require.ErrorIs(t, err, tt.want)

			after, err := e.GetSession(snap.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestResolveInactiveQuestion(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue")
	res := domain.Resolution{TeamID: snap.Teams[0].ID, Outcome: domain.OutcomeCorrect}

	_, err := e.ResolveQuestion(snap.ID, "q1", res, 10)
	require.ErrorIs(t, err, domain.ErrQuestionInactive)
	after, err := e.GetSession(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap, after)

	started, err := e.StartQuestion(snap.ID, "q1")
	require.NoError(t, err)
	_, err = e.ResolveQuestion(snap.ID, "q2", res, 10)
	require.ErrorIs(t, err, domain.ErrQuestionInactive)
	after, err = e.GetSession(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, started, after)
}

func TestQuestionCannotBeReplayed(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue")
	play(t, e, snap.ID, "q1", domain.Resolution{TeamID: snap.Teams[0].ID, Outcome: domain.OutcomeCorrect}, 10)

	_, err := e.StartQuestion(snap.ID, "q1")
	require.ErrorIs(t, err, domain.ErrQuestionUsed)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestTurnRotationWrapsAndFollowsOverride(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue", "Green")
	res := func(i int) domain.Resolution {
		return domain.Resolution{TeamID: snap.Teams[i].ID, Outcome: domain.OutcomeIncorrect}
	}

	assert.Equal(t, 1, play(t, e, snap.ID, "q1", res(0), 10).CurrentTurnIndex)
	assert.Equal(t, 2, play(t, e, snap.ID, "q2", res(1), 10).CurrentTurnIndex)
	assert.Equal(t, 0, play(t, e, snap.ID, "q3", res(2), 10).CurrentTurnIndex)

	_, err := e.SetActiveTurn(snap.ID, 3)
	require.ErrorIs(t, err, domain.ErrTeamIndex)
	_, err = e.SetActiveTurn(snap.ID, -1)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	overridden, err := e.SetActiveTurn(snap.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, overridden.CurrentTurnIndex)

	assert.Equal(t, 0, play(t, e, snap.ID, "q4", res(2), 10).CurrentTurnIndex)
}

func TestSnapshotsAreCopies(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue")
	snap.Teams[0].Score = 999
	snap.Teams[0].Name = "Hacked"

	fresh, err := e.GetSession(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Teams[0].Score)
	assert.Equal(t, "Red", fresh.Teams[0].Name)
}

func TestConcurrentResolveAppliesOnce(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue")
	_, err := e.StartQuestion(snap.ID, "q1")
	require.NoError(t, err)

	var succeeded, inactive atomic.Int32
	var eg errgroup.Group
	for i := 0; i < 32; i++ {
		eg.Go(func() error {
			_, err := e.ResolveQuestion(snap.ID, "q1", domain.Resolution{
				TeamID:  snap.Teams[0].ID,
				Outcome: domain.OutcomeCorrect,
			}, 10)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrQuestionInactive):
				inactive.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	assert.EqualValues(t, 1, succeeded.Load())
	assert.EqualValues(t, 31, inactive.Load())

	after, err := e.GetSession(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, after.Teams[0].Score)
	assert.Equal(t, 1, after.CurrentTurnIndex)
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	e := newEngine()
	var eg errgroup.Group
	for i := 0; i < 16; i++ {
		eg.Go(func() error {
			snap, err := e.CreateSession("quiz-1", []string{"Red", "Blue"}, 20)
			if err != nil {
				return err
			}
			if _, err := e.StartQuestion(snap.ID, "q1"); err != nil {
				return err
			}
			_, err = e.ResolveQuestion(snap.ID, "q1", domain.Resolution{TeamID: snap.Teams[1].ID, Outcome: domain.OutcomeCorrect}, 20)
			return err
		})
	}
	require.NoError(t, eg.Wait())
	assert.Equal(t, 16, e.SessionCount())
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue")

	updates, cancel, err := e.Subscribe(snap.ID)
	require.NoError(t, err)

	initial := <-updates
	assert.Equal(t, snap.ID, initial.ID)

	_, err = e.StartQuestion(snap.ID, "q1")
	require.NoError(t, err)
	started := <-updates
	require.NotNil(t, started.CurrentQuestionID)

	cancel()
	_, ok := <-updates
	assert.False(t, ok)
	cancel()
}

func TestSubscribeDuringMutationsNeverBlocks(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue")

	done := make(chan error, 1)
	go func() {
		var eg errgroup.Group
		for i := 0; i < 8; i++ {
			eg.Go(func() error {
				for j := 0; j < 300; j++ {
					if _, err := e.SetActiveTurn(snap.ID, j%2); err != nil {
						return err
					}
				}
				return nil
			})
			// Subscribers that never read.
			eg.Go(func() error {
				_, _, err := e.Subscribe(snap.ID)
				return err
			})
		}
		if err := eg.Wait(); err != nil {
			done <- err
			return
		}
		_, err := e.GetSession(snap.ID)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session blocked while subscribers were added during mutations")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	e := newEngine()
	snap := mustCreate(t, e, "Red", "Blue")
	updates, cancel, err := e.Subscribe(snap.ID)
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < 20; i++ {
		_, err := e.SetActiveTurn(snap.ID, i%2)
		require.NoError(t, err)
	}

	var last domain.SessionSnapshot
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Equal(t, 1, last.CurrentTurnIndex)
}

func TestStealPoints(t *testing.T) {
	half := decimal.NewFromFloat(0.5)
	assert.Equal(t, 5, app.StealPoints(10, half))
	assert.Equal(t, 3, app.StealPoints(7, half))
	assert.Equal(t, 0, app.StealPoints(1, half))
	assert.Equal(t, 33, app.StealPoints(100, decimal.NewFromFloat(0.33)))
}

func mustCreate(t *testing.T, e *app.Engine, teams ...string) domain.SessionSnapshot {
	t.Helper()
	snap, err := e.CreateSession("quiz-1", teams, 20)
	require.NoError(t, err)
	return snap
}

func play(t *testing.T, e *app.Engine, sessionID, questionID string, res domain.Resolution, points int) domain.SessionSnapshot {
	t.Helper()
	_, err := e.StartQuestion(sessionID, questionID)
	require.NoError(t, err)
	snap, err := e.ResolveQuestion(sessionID, questionID, res, points)
	require.NoError(t, err)
	return snap
}

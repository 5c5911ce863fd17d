package app

import (
	"context"
	"log"

	"peace-cake-service/internal/domain"
	"peace-cake-service/internal/telemetry"
)

// QuizCatalog is the read side of the catalog consulted by the live game.
type QuizCatalog interface {
	QuizExists(ctx context.Context, quizID string) (bool, error)
	Question(ctx context.Context, questionID string) (domain.QuestionRef, error)
}

// GameService checks ids and point values against the catalog and then drives
// the engine with them.
type GameService struct {
	engine       *Engine
	catalog      QuizCatalog
	defaultTimer int
}

func NewGameService(engine *Engine, catalog QuizCatalog, defaultTimerSeconds int) *GameService {
	return &GameService{engine: engine, catalog: catalog, defaultTimer: defaultTimerSeconds}
}

// CreateSession starts a session for an existing quiz. A zero timer falls back
// to the configured primary timer.
func (s *GameService) CreateSession(ctx context.Context, quizID string, teamNames []string, timerSeconds int) (domain.SessionSnapshot, error) {
	ok, err := s.catalog.QuizExists(ctx, quizID)
	if err != nil {
		return s.fail("create_session", domain.SessionSnapshot{}, err)
	}
	if !ok {
		return s.fail("create_session", domain.SessionSnapshot{}, domain.ErrQuizNotFound)
	}
	if timerSeconds == 0 {
		timerSeconds = s.defaultTimer
	}

	snap, err := s.engine.CreateSession(quizID, teamNames, timerSeconds)
	if err != nil {
		return s.fail("create_session", snap, err)
	}
	telemetry.SessionCreated()
	log.Printf("session %s created for quiz %s with %d teams", snap.ID, quizID, len(snap.Teams))
	return snap, nil
}

func (s *GameService) GetSession(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	return s.engine.GetSession(sessionID)
}

// StartQuestion puts a catalog question in play for the session.
func (s *GameService) StartQuestion(ctx context.Context, sessionID, questionID string) (domain.SessionSnapshot, error) {
	if _, err := s.catalog.Question(ctx, questionID); err != nil {
		return s.fail("start_question", domain.SessionSnapshot{}, err)
	}
	snap, err := s.engine.StartQuestion(sessionID, questionID)
	if err != nil {
		return s.fail("start_question", snap, err)
	}
	return snap, nil
}

// ResolveQuestion scores the in-play question using the catalog's point value.
func (s *GameService) ResolveQuestion(ctx context.Context, sessionID, questionID string, res domain.Resolution) (domain.SessionSnapshot, error) {
	question, err := s.catalog.Question(ctx, questionID)
	if err != nil {
		return s.fail("resolve_question", domain.SessionSnapshot{}, err)
	}
	snap, err := s.engine.ResolveQuestion(sessionID, questionID, res, question.Points)
	if err != nil {
		return s.fail("resolve_question", snap, err)
	}
	telemetry.QuestionResolved(res)
	return snap, nil
}

// SetActiveTurn lets the host pick which team goes next.
func (s *GameService) SetActiveTurn(_ context.Context, sessionID string, teamIndex int) (domain.SessionSnapshot, error) {
	snap, err := s.engine.SetActiveTurn(sessionID, teamIndex)
	if err != nil {
		return s.fail("set_active_turn", snap, err)
	}
	return snap, nil
}

// Subscribe streams session snapshots; see Engine.Subscribe.
func (s *GameService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionSnapshot, func(), error) {
	return s.engine.Subscribe(sessionID)
}

// ActiveSessions reports how many sessions are live in this process.
func (s *GameService) ActiveSessions() int {
	return s.engine.SessionCount()
}

// Rules exposes the engine settings for the config endpoint.
func (s *GameService) Rules() Rules {
	return s.engine.Rules()
}

func (s *GameService) fail(operation string, snap domain.SessionSnapshot, err error) (domain.SessionSnapshot, error) {
	telemetry.OperationFailed(operation, err)
	return snap, err
}

package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"peace-cake-service/internal/domain"
)

// SessionRepository abstracts the registry that owns live sessions
// (plain in-memory, or in-memory with Redis liveness markers).
type SessionRepository interface {
	Add(session *Session) error
	Get(sessionID string) (*Session, bool)
	Len() int
}

// Rules are the process-wide game settings read at startup.
type Rules struct {
	StealPointsFactor float64
	MinTeams          int
	MaxTeams          int
}

// DefaultRules mirrors the stock game configuration.
func DefaultRules() Rules {
	return Rules{StealPointsFactor: 0.5, MinTeams: 2, MaxTeams: 4}
}

// Engine runs live sessions. It never touches the catalog: callers are
// expected to have validated quiz and question ids and to pass in points.
//
// Locking is sharded: the repository guards its map, and every session guards
// its own state, so resolving in one session never waits on another.
type Engine struct {
	sessions    SessionRepository
	rules       Rules
	stealFactor decimal.Decimal
	now         func() time.Time
	newID       func() string
}

func NewEngine(store SessionRepository, rules Rules) *Engine {
	return NewEngineWithClock(store, rules, time.Now)
}

// NewEngineWithClock allows deterministic timestamps in tests.
func NewEngineWithClock(store SessionRepository, rules Rules, now func() time.Time) *Engine {
	return &Engine{
		sessions:    store,
		rules:       rules,
		stealFactor: decimal.NewFromFloat(rules.StealPointsFactor),
		now:         now,
		newID:       uuid.NewString,
	}
}

// Rules returns the settings the engine was built with.
func (e *Engine) Rules() Rules {
	return e.rules
}

// CreateSession registers a new session with one zero-score team per name.
func (e *Engine) CreateSession(quizID string, teamNames []string, timerSeconds int) (domain.SessionSnapshot, error) {
	if n := len(teamNames); n < e.rules.MinTeams || n > e.rules.MaxTeams {
		return domain.SessionSnapshot{}, fmt.Errorf("%w: must be between %d and %d, got %d",
			domain.ErrTeamCount, e.rules.MinTeams, e.rules.MaxTeams, n)
	}
	if timerSeconds < 0 {
		return domain.SessionSnapshot{}, domain.ErrTimer
	}

	teams := make([]domain.Team, 0, len(teamNames))
	for _, name := range teamNames {
		name = strings.TrimSpace(name)
		if name == "" {
			return domain.SessionSnapshot{}, domain.ErrTeamName
		}
		teams = append(teams, domain.Team{ID: e.newID(), Name: name})
	}

	session := newSession(e.newID(), quizID, teams, timerSeconds, e.now)
	if err := e.sessions.Add(session); err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// GetSession returns the current snapshot of a session.
func (e *Engine) GetSession(sessionID string) (domain.SessionSnapshot, error) {
	session, err := e.require(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// StartQuestion puts questionID in play. It is rejected if the question was
// already played in this session or another question is still in play.
func (e *Engine) StartQuestion(sessionID, questionID string) (domain.SessionSnapshot, error) {
	session, err := e.require(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.start(questionID)
}

// ResolveQuestion scores the in-play question, marks it used and passes the
// turn to the next team, all as one step.
func (e *Engine) ResolveQuestion(sessionID, questionID string, res domain.Resolution, points int) (domain.SessionSnapshot, error) {
	session, err := e.require(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.resolve(questionID, res, points, e.stealFactor)
}

// SetActiveTurn overrides whose turn it is.
func (e *Engine) SetActiveTurn(sessionID string, teamIndex int) (domain.SessionSnapshot, error) {
	session, err := e.require(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.setTurn(teamIndex)
}

// Subscribe returns a channel that receives a snapshot after every change to
// the session. The caller must invoke the returned cancel function to avoid leaks.
func (e *Engine) Subscribe(sessionID string) (<-chan domain.SessionSnapshot, func(), error) {
	session, err := e.require(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// SessionCount reports how many sessions the registry holds.
func (e *Engine) SessionCount() int {
	return e.sessions.Len()
}

func (e *Engine) require(sessionID string) (*Session, error) {
	session, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

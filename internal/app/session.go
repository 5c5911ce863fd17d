package app

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"peace-cake-service/internal/domain"
)

// Session is the in-memory state of one live game. All fields below mu are
// guarded by it; callers only ever see copies produced by snapshotLocked.
type Session struct {
	id           string
	quizID       string
	timerSeconds int
	now          func() time.Time

	mu          sync.RWMutex
	teams       []domain.Team
	used        map[string]struct{}
	usedOrder   []string
	active      *activeQuestion
	turn        int
	subscribers map[chan domain.SessionSnapshot]struct{}
}

type activeQuestion struct {
	id        string
	startedAt time.Time
}

func newSession(id, quizID string, teams []domain.Team, timerSeconds int, now func() time.Time) *Session {
	return &Session{
		id:           id,
		quizID:       quizID,
		timerSeconds: timerSeconds,
		now:          now,
		teams:        teams,
		used:         make(map[string]struct{}),
		subscribers:  make(map[chan domain.SessionSnapshot]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) start(questionID string) (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.used[questionID]; ok {
		return domain.SessionSnapshot{}, domain.ErrQuestionUsed
	}
	if s.active != nil {
		return domain.SessionSnapshot{}, domain.ErrQuestionInPlay
	}

	s.active = &activeQuestion{id: questionID, startedAt: s.now().UTC()}
	return s.broadcastLocked(), nil
}

// resolve scores the active question, retires it and rotates the turn. Every
// check runs before the first assignment so a failed call changes nothing.
func (s *Session) resolve(questionID string, res domain.Resolution, points int, stealFactor decimal.Decimal) (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.id != questionID {
		return domain.SessionSnapshot{}, domain.ErrQuestionInactive
	}

	answering := s.teamIndexLocked(res.TeamID)
	if answering < 0 {
		return domain.SessionSnapshot{}, domain.ErrTeamNotFound
	}
	if !res.Outcome.Valid() {
		return domain.SessionSnapshot{}, domain.ErrOutcome
	}

	stealing, stealPoints := -1, 0
	if steal := res.StealAttempt; steal != nil {
		if strings.TrimSpace(steal.TeamID) == "" || !steal.Outcome.Valid() {
			return domain.SessionSnapshot{}, domain.ErrStealPayload
		}
		if res.Outcome != domain.OutcomeIncorrect {
			return domain.SessionSnapshot{}, domain.ErrStealNotAllowed
		}
		stealing = s.teamIndexLocked(steal.TeamID)
		if stealing < 0 {
			return domain.SessionSnapshot{}, domain.ErrTeamNotFound
		}
		if steal.Outcome == domain.OutcomeCorrect {
			stealPoints = StealPoints(points, stealFactor)
		}
	}

	if res.Outcome == domain.OutcomeCorrect {
		s.teams[answering].Score += points
	}
	if stealing >= 0 {
		s.teams[stealing].Score += stealPoints
	}

	s.used[questionID] = struct{}{}
	s.usedOrder = append(s.usedOrder, questionID)
	s.active = nil
	s.turn = (s.turn + 1) % len(s.teams)

	return s.broadcastLocked(), nil
}

func (s *Session) setTurn(index int) (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.teams) {
		return domain.SessionSnapshot{}, domain.ErrTeamIndex
	}
	s.turn = index
	return s.broadcastLocked(), nil
}

func (s *Session) teamIndexLocked(teamID string) int {
	for i := range s.teams {
		if s.teams[i].ID == teamID {
			return i
		}
	}
	return -1
}

func (s *Session) subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// ch is new and empty, so this cannot block.
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.SessionSnapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its oldest snapshot to make room. Sends on
			// ch only happen under mu, and the refill must never block here.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	teams := make([]domain.Team, len(s.teams))
	copy(teams, s.teams)
	used := make([]string, len(s.usedOrder))
	copy(used, s.usedOrder)

	snap := domain.SessionSnapshot{
		ID:               s.id,
		QuizID:           s.quizID,
		Teams:            teams,
		UsedQuestionIDs:  used,
		CurrentTurnIndex: s.turn,
		TimerSeconds:     s.timerSeconds,
	}
	if s.active != nil {
		id, startedAt := s.active.id, s.active.startedAt
		snap.CurrentQuestionID = &id
		snap.QuestionStartedAt = &startedAt
	}
	return snap
}

// StealPoints is the share of points a successful steal earns, truncated
// toward zero.
func StealPoints(points int, factor decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(points)).Mul(factor).IntPart())
}

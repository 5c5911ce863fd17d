package domain

import "time"

// Outcome is the result of a team's answer.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

// Valid reports whether o is one of the recognised outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomeCorrect || o == OutcomeIncorrect
}

// Team is a snapshot of one team in a live session.
type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// SessionSnapshot is the serializable view of a live session. It is a copy;
// mutating it never affects the session it was taken from.
type SessionSnapshot struct {
	ID                string     `json:"id"`
	QuizID            string     `json:"quiz_id"`
	Teams             []Team     `json:"teams"`
	UsedQuestionIDs   []string   `json:"used_question_ids"`
	CurrentQuestionID *string    `json:"current_question_id"`
	QuestionStartedAt *time.Time `json:"question_started_at"`
	CurrentTurnIndex  int        `json:"current_turn_index"`
	TimerSeconds      int        `json:"timer_seconds"`
}

// StealAttempt is the optional second answer after an incorrect primary one.
type StealAttempt struct {
	TeamID  string  `json:"team_id"`
	Outcome Outcome `json:"outcome"`
}

// Resolution closes the active question of a session.
type Resolution struct {
	TeamID       string        `json:"team_id"`
	Outcome      Outcome       `json:"outcome"`
	StealAttempt *StealAttempt `json:"steal_attempt,omitempty"`
}

// Difficulty labels a question for the host.
type Difficulty string

const (
	DifficultyEasy       Difficulty = "Easy"
	DifficultyMedium     Difficulty = "Medium"
	DifficultyHard       Difficulty = "Hard"
	DifficultyImpossible Difficulty = "Impossible"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyImpossible:
		return true
	}
	return false
}

// Profile owns a set of quizzes.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileDetail is a profile with summaries of its quizzes.
type ProfileDetail struct {
	Profile
	QuizCount int           `json:"quiz_count"`
	Quizzes   []QuizSummary `json:"quizzes"`
}

// QuizSummary is a quiz without its questions.
type QuizSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Quiz is a collection of questions, ordered by points ascending.
type Quiz struct {
	ID          string     `json:"id"`
	ProfileID   string     `json:"profile_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Questions   []Question `json:"questions"`
}

// Summary returns the question-less view of q.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		QuestionCount: len(q.Questions),
		CreatedAt:     q.CreatedAt,
	}
}

// Question models a multiple choice question with up to four options.
type Question struct {
	ID           string      `json:"id"`
	QuizID       string      `json:"quiz_id"`
	Prompt       string      `json:"prompt"`
	Options      []string    `json:"options"`
	CorrectIndex int         `json:"correct_index"`
	Points       int         `json:"points"`
	Difficulty   *Difficulty `json:"difficulty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// QuestionRef is the slice of a question the live session flow needs.
type QuestionRef struct {
	ID          string `json:"id"`
	QuizID      string `json:"quiz_id"`
	Points      int    `json:"points"`
	OptionCount int    `json:"option_count"`
}

// Ref returns the lookup view of q.
func (q Question) Ref() QuestionRef {
	return QuestionRef{
		ID:          q.ID,
		QuizID:      q.QuizID,
		Points:      q.Points,
		OptionCount: len(q.Options),
	}
}

// QuizInput carries the fields for creating a quiz.
type QuizInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// QuizPatch is a partial quiz update; nil fields are left untouched.
type QuizPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// QuestionInput carries the fields for creating a question.
type QuestionInput struct {
	Prompt       string      `json:"prompt"`
	Options      []string    `json:"options"`
	CorrectIndex int         `json:"correct_index"`
	Points       int         `json:"points"`
	Difficulty   *Difficulty `json:"difficulty"`
}

// QuestionPatch is a partial question update; nil fields are left untouched.
type QuestionPatch struct {
	Prompt       *string     `json:"prompt"`
	Options      []string    `json:"options"`
	CorrectIndex *int        `json:"correct_index"`
	Points       *int        `json:"points"`
	Difficulty   *Difficulty `json:"difficulty"`
}

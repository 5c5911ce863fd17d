package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine or the catalog wraps exactly
// one of these, so callers classify with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrAlreadyExists   = errors.New("already exists")
)

var (
	// ErrSessionNotFound is returned when a session id is not in the registry.
	ErrSessionNotFound = fmt.Errorf("%w: session not found", ErrNotFound)
	// ErrTeamNotFound is returned when a team id does not belong to the session.
	ErrTeamNotFound = fmt.Errorf("%w: team not found in session", ErrNotFound)
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("%w: quiz not found", ErrNotFound)
	// ErrQuestionNotFound indicates a question id is unknown to the catalog.
	ErrQuestionNotFound = fmt.Errorf("%w: question not found", ErrNotFound)
	// ErrProfileNotFound indicates a profile id is unknown to the catalog.
	ErrProfileNotFound = fmt.Errorf("%w: profile not found", ErrNotFound)

	ErrTeamCount       = fmt.Errorf("%w: team count out of range", ErrInvalidArgument)
	ErrTeamName        = fmt.Errorf("%w: team name must not be blank", ErrInvalidArgument)
	ErrTimer           = fmt.Errorf("%w: timer seconds must not be negative", ErrInvalidArgument)
	ErrOutcome         = fmt.Errorf("%w: outcome must be 'correct' or 'incorrect'", ErrInvalidArgument)
	ErrStealPayload    = fmt.Errorf("%w: invalid steal attempt payload", ErrInvalidArgument)
	ErrStealNotAllowed = fmt.Errorf("%w: steal attempt only allowed after an incorrect initial outcome", ErrInvalidArgument)
	ErrTeamIndex       = fmt.Errorf("%w: invalid team index", ErrInvalidArgument)

	ErrQuestionUsed     = fmt.Errorf("%w: question already used in this session", ErrInvalidState)
	ErrQuestionInPlay   = fmt.Errorf("%w: another question is already in play", ErrInvalidState)
	ErrQuestionInactive = fmt.Errorf("%w: question is not currently active for this session", ErrInvalidState)

	ErrProfileNameTaken = fmt.Errorf("%w: profile name already exists", ErrAlreadyExists)
)

// Invalid wraps a validation message as an ErrInvalidArgument.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

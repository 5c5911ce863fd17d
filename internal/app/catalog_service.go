package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"peace-cake-service/internal/domain"
)

const (
	maxProfileName = 100
	maxQuizTitle   = 200
	maxOptions     = 4
)

// CatalogStore persists profiles, quizzes and questions. Deletes cascade and
// report the ids of every question they removed.
type CatalogStore interface {
	QuizCatalog

	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	CreateProfile(ctx context.Context, profile domain.Profile) error
	GetProfile(ctx context.Context, profileID string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, profile domain.Profile) error
	DeleteProfile(ctx context.Context, profileID string) ([]string, error)

	ListQuizzes(ctx context.Context, profileID string) ([]domain.QuizSummary, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) ([]string, error)

	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	CreateQuestion(ctx context.Context, question domain.Question) error
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	UpdateQuestion(ctx context.Context, question domain.Question) error
	DeleteQuestion(ctx context.Context, questionID string) error
}

// QuestionCache is told which cached question lookups went stale.
type QuestionCache interface {
	Invalidate(ctx context.Context, questionIDs ...string) error
}

// CatalogService validates catalog edits before handing them to the store.
type CatalogService struct {
	store CatalogStore
	cache QuestionCache
	now   func() time.Time
	newID func() string
}

// NewCatalogService wires the store; cache may be nil when lookups are not cached.
func NewCatalogService(store CatalogStore, cache QuestionCache) *CatalogService {
	return &CatalogService{store: store, cache: cache, now: time.Now, newID: uuid.NewString}
}

func (s *CatalogService) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return s.store.ListProfiles(ctx)
}

func (s *CatalogService) CreateProfile(ctx context.Context, name string) (domain.Profile, error) {
	name, err := profileName(name)
	if err != nil {
		return domain.Profile{}, err
	}
	profile := domain.Profile{ID: s.newID(), Name: name, CreatedAt: s.stamp()}
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

// GetProfile returns the profile with summaries of its quizzes.
func (s *CatalogService) GetProfile(ctx context.Context, profileID string) (domain.ProfileDetail, error) {
	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return domain.ProfileDetail{}, err
	}
	quizzes, err := s.store.ListQuizzes(ctx, profileID)
	if err != nil {
		return domain.ProfileDetail{}, err
	}
	return domain.ProfileDetail{Profile: profile, QuizCount: len(quizzes), Quizzes: quizzes}, nil
}

func (s *CatalogService) RenameProfile(ctx context.Context, profileID, name string) (domain.Profile, error) {
	name, err := profileName(name)
	if err != nil {
		return domain.Profile{}, err
	}
	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return domain.Profile{}, err
	}
	profile.Name = name
	if err := s.store.UpdateProfile(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

// DeleteProfile removes the profile together with its quizzes and questions.
func (s *CatalogService) DeleteProfile(ctx context.Context, profileID string) error {
	removed, err := s.store.DeleteProfile(ctx, profileID)
	if err != nil {
		return err
	}
	return s.invalidate(ctx, removed...)
}

func (s *CatalogService) ListQuizzes(ctx context.Context, profileID string) ([]domain.QuizSummary, error) {
	if _, err := s.store.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	return s.store.ListQuizzes(ctx, profileID)
}

func (s *CatalogService) CreateQuiz(ctx context.Context, profileID string, in domain.QuizInput) (domain.Quiz, error) {
	title, err := quizTitle(in.Title)
	if err != nil {
		return domain.Quiz{}, err
	}
	now := s.stamp()
	quiz := domain.Quiz{
		ID:          s.newID(),
		ProfileID:   profileID,
		Title:       title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Questions:   []domain.Question{},
	}
	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *CatalogService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.store.GetQuiz(ctx, quizID)
}

func (s *CatalogService) UpdateQuiz(ctx context.Context, quizID string, patch domain.QuizPatch) (domain.Quiz, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if patch.Title != nil {
		if quiz.Title, err = quizTitle(*patch.Title); err != nil {
			return domain.Quiz{}, err
		}
	}
	if patch.Description != nil {
		quiz.Description = patch.Description
	}
	quiz.UpdatedAt = s.stamp()
	if err := s.store.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// DeleteQuiz removes the quiz and its questions.
func (s *CatalogService) DeleteQuiz(ctx context.Context, quizID string) error {
	removed, err := s.store.DeleteQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	return s.invalidate(ctx, removed...)
}

// DuplicateQuiz copies a quiz and all its questions under the same profile.
func (s *CatalogService) DuplicateQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	source, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	now := s.stamp()
	dup := domain.Quiz{
		ID:          s.newID(),
		ProfileID:   source.ProfileID,
		Title:       source.Title + " (Copy)",
		Description: source.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Questions:   make([]domain.Question, 0, len(source.Questions)),
	}
	for _, q := range source.Questions {
		q.ID = s.newID()
		q.QuizID = dup.ID
		q.Options = append([]string(nil), q.Options...)
		q.CreatedAt, q.UpdatedAt = now, now
		dup.Questions = append(dup.Questions, q)
	}
	if err := s.store.CreateQuiz(ctx, dup); err != nil {
		return domain.Quiz{}, err
	}
	return dup, nil
}

func (s *CatalogService) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	return s.store.ListQuestions(ctx, quizID)
}

func (s *CatalogService) CreateQuestion(ctx context.Context, quizID string, in domain.QuestionInput) (domain.Question, error) {
	now := s.stamp()
	question := domain.Question{
		ID:           s.newID(),
		QuizID:       quizID,
		Prompt:       in.Prompt,
		Options:      in.Options,
		CorrectIndex: in.CorrectIndex,
		Points:       in.Points,
		Difficulty:   in.Difficulty,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if question.Options == nil {
		question.Options = []string{}
	}
	if err := validateQuestion(question); err != nil {
		return domain.Question{}, err
	}
	if err := s.store.CreateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *CatalogService) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	return s.store.GetQuestion(ctx, questionID)
}

// UpdateQuestion applies patch and re-validates the merged question, so
// correct_index is always checked against the options it will end up with.
func (s *CatalogService) UpdateQuestion(ctx context.Context, questionID string, patch domain.QuestionPatch) (domain.Question, error) {
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if patch.Prompt != nil {
		question.Prompt = *patch.Prompt
	}
	if patch.Options != nil {
		question.Options = patch.Options
	}
	if patch.CorrectIndex != nil {
		question.CorrectIndex = *patch.CorrectIndex
	}
	if patch.Points != nil {
		question.Points = *patch.Points
	}
	if patch.Difficulty != nil {
		question.Difficulty = patch.Difficulty
	}
	return s.saveQuestion(ctx, question)
}

// ReorderQuestion changes only the fields that decide board placement.
func (s *CatalogService) ReorderQuestion(ctx context.Context, questionID string, points *int, difficulty *domain.Difficulty) (domain.Question, error) {
	return s.UpdateQuestion(ctx, questionID, domain.QuestionPatch{Points: points, Difficulty: difficulty})
}

func (s *CatalogService) DeleteQuestion(ctx context.Context, questionID string) error {
	if err := s.store.DeleteQuestion(ctx, questionID); err != nil {
		return err
	}
	return s.invalidate(ctx, questionID)
}

func (s *CatalogService) saveQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	if err := validateQuestion(question); err != nil {
		return domain.Question{}, err
	}
	question.UpdatedAt = s.stamp()
	if err := s.store.UpdateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	if err := s.invalidate(ctx, question.ID); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *CatalogService) invalidate(ctx context.Context, questionIDs ...string) error {
	if s.cache == nil || len(questionIDs) == 0 {
		return nil
	}
	if err := s.cache.Invalidate(ctx, questionIDs...); err != nil {
		return fmt.Errorf("invalidate question cache: %w", err)
	}
	return nil
}

func (s *CatalogService) stamp() time.Time {
	return s.now().UTC()
}

func profileName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || len(name) > maxProfileName {
		return "", domain.Invalid("profile name must be 1-%d characters", maxProfileName)
	}
	return name, nil
}

func quizTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" || len(title) > maxQuizTitle {
		return "", domain.Invalid("quiz title must be 1-%d characters", maxQuizTitle)
	}
	return title, nil
}

func validateQuestion(q domain.Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return domain.Invalid("prompt is required")
	}
	if len(q.Options) > maxOptions {
		return domain.Invalid("at most %d options are allowed", maxOptions)
	}
	if len(q.Options) > 0 && (q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options)) {
		return domain.Invalid("correct_index must reference one of the provided options")
	}
	if q.Points <= 0 {
		return domain.Invalid("points must be greater than zero")
	}
	if q.Difficulty != nil && !q.Difficulty.Valid() {
		return domain.Invalid("unknown difficulty %q", *q.Difficulty)
	}
	return nil
}

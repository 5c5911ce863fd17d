package memory

import (
	"context"
	"sort"
	"sync"

	"peace-cake-service/internal/domain"
)

// CatalogStore is an in-memory implementation of app.CatalogStore, used when
// no Postgres URL is configured and in tests.
type CatalogStore struct {
	mu        sync.RWMutex
	profiles  map[string]domain.Profile
	quizzes   map[string]domain.Quiz
	questions map[string]domain.Question
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		profiles:  make(map[string]domain.Profile),
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string]domain.Question),
	}
}

// Seed loads a profile and its quizzes (questions included) in one go.
func (s *CatalogStore) Seed(profile domain.Profile, quizzes ...domain.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile
	for _, quiz := range quizzes {
		s.putQuizLocked(quiz)
	}
}

func (s *CatalogStore) QuizExists(_ context.Context, quizID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.quizzes[quizID]
	return ok, nil
}

func (s *CatalogStore) Question(_ context.Context, questionID string) (domain.QuestionRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.QuestionRef{}, domain.ErrQuestionNotFound
	}
	return q.Ref(), nil
}

func (s *CatalogStore) ListProfiles(_ context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profiles := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
	})
	return profiles, nil
}

func (s *CatalogStore) CreateProfile(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTakenLocked(profile.ID, profile.Name) {
		return domain.ErrProfileNameTaken
	}
	s.profiles[profile.ID] = profile
	return nil
}

func (s *CatalogStore) GetProfile(_ context.Context, profileID string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

func (s *CatalogStore) UpdateProfile(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; !ok {
		return domain.ErrProfileNotFound
	}
	if s.nameTakenLocked(profile.ID, profile.Name) {
		return domain.ErrProfileNameTaken
	}
	s.profiles[profile.ID] = profile
	return nil
}

func (s *CatalogStore) DeleteProfile(_ context.Context, profileID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profileID]; !ok {
		return nil, domain.ErrProfileNotFound
	}
	var removed []string
	for id, quiz := range s.quizzes {
		if quiz.ProfileID == profileID {
			removed = append(removed, s.deleteQuizLocked(id)...)
		}
	}
	delete(s.profiles, profileID)
	return removed, nil
}

func (s *CatalogStore) ListQuizzes(_ context.Context, profileID string) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var quizzes []domain.Quiz
	for _, quiz := range s.quizzes {
		if quiz.ProfileID == profileID {
			quizzes = append(quizzes, quiz)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.Before(quizzes[j].CreatedAt)
	})
	summaries := make([]domain.QuizSummary, 0, len(quizzes))
	for _, quiz := range quizzes {
		summary := quiz.Summary()
		summary.QuestionCount = s.countQuestionsLocked(quiz.ID)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *CatalogStore) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[quiz.ProfileID]; !ok {
		return domain.ErrProfileNotFound
	}
	s.putQuizLocked(quiz)
	return nil
}

func (s *CatalogStore) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz.Questions = s.questionsLocked(quizID)
	return quiz, nil
}

func (s *CatalogStore) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	quiz.Questions = nil
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *CatalogStore) DeleteQuiz(_ context.Context, quizID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return nil, domain.ErrQuizNotFound
	}
	return s.deleteQuizLocked(quizID), nil
}

func (s *CatalogStore) ListQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return nil, domain.ErrQuizNotFound
	}
	return s.questionsLocked(quizID), nil
}

func (s *CatalogStore) CreateQuestion(_ context.Context, question domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.questions[question.ID] = question
	return nil
}

func (s *CatalogStore) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *CatalogStore) UpdateQuestion(_ context.Context, question domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.questions[question.ID] = question
	return nil
}

func (s *CatalogStore) DeleteQuestion(_ context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, questionID)
	return nil
}

func (s *CatalogStore) putQuizLocked(quiz domain.Quiz) {
	for _, q := range quiz.Questions {
		q.QuizID = quiz.ID
		s.questions[q.ID] = q
	}
	quiz.Questions = nil
	s.quizzes[quiz.ID] = quiz
}

func (s *CatalogStore) deleteQuizLocked(quizID string) []string {
	var removed []string
	for id, q := range s.questions {
		if q.QuizID == quizID {
			removed = append(removed, id)
			delete(s.questions, id)
		}
	}
	delete(s.quizzes, quizID)
	return removed
}

// questionsLocked returns the quiz's questions ordered by points.
func (s *CatalogStore) questionsLocked(quizID string) []domain.Question {
	questions := []domain.Question{}
	for _, q := range s.questions {
		if q.QuizID == quizID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Points != questions[j].Points {
			return questions[i].Points < questions[j].Points
		}
		return questions[i].CreatedAt.Before(questions[j].CreatedAt)
	})
	return questions
}

func (s *CatalogStore) countQuestionsLocked(quizID string) int {
	n := 0
	for _, q := range s.questions {
		if q.QuizID == quizID {
			n++
		}
	}
	return n
}

func (s *CatalogStore) nameTakenLocked(profileID, name string) bool {
	for id, p := range s.profiles {
		if id != profileID && p.Name == name {
			return true
		}
	}
	return false
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	loader := &countingLoader{QuizCatalog: seededCatalog()}
	cache := NewQuestionCache(loader, time.Minute)

	ref, err := cache.Question(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if ref.Points != 100 || ref.OptionCount != 2 {
		t.Fatalf("unexpected ref %+v", ref)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.Question(context.Background(), "q1"); err != nil {
		t.Fatalf("get question 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionCacheInvalidateAndExpiry(t *testing.T) {
	loader := &countingLoader{QuizCatalog: seededCatalog()}
	cache := NewQuestionCache(loader, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	_, _ = cache.Question(context.Background(), "q1")
	if err := cache.Invalidate(context.Background(), "q1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.Question(context.Background(), "q1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}

	now = now.Add(2 * time.Minute)
	_, _ = cache.Question(context.Background(), "q1")
	if loader.calls != 3 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestQuestionCacheDoesNotCacheMisses(t *testing.T) {
	loader := &countingLoader{QuizCatalog: seededCatalog()}
	cache := NewQuestionCache(loader, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cache.Question(context.Background(), "nope")
		if !errors.Is(err, domain.ErrQuestionNotFound) {
			t.Fatalf("expected question not found, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected every miss to reach the loader, got %d", loader.calls)
	}
}

func TestQuestionCacheFillOutlivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loader := &cancellingLoader{QuizCatalog: seededCatalog(), cancel: cancel}
	cache := NewQuestionCache(loader, time.Minute)

	ref, err := cache.Question(ctx, "q1")
	if err != nil {
		t.Fatalf("expected fill to survive caller cancellation, got %v", err)
	}
	if ref.Points != 100 {
		t.Fatalf("unexpected ref %+v", ref)
	}
	if _, err := cache.Question(context.Background(), "q1"); err != nil {
		t.Fatalf("get question 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected filled entry to be cached, loader calls %d", loader.calls)
	}
}

// cancellingLoader cancels the caller's context mid-load and fails if that
// cancellation reaches the context it was handed.
type cancellingLoader struct {
	app.QuizCatalog
	cancel func()
	calls  int
}

func (l *cancellingLoader) Question(ctx context.Context, questionID string) (domain.QuestionRef, error) {
	l.calls++
	l.cancel()
	if err := ctx.Err(); err != nil {
		return domain.QuestionRef{}, err
	}
	return l.QuizCatalog.Question(ctx, questionID)
}

type countingLoader struct {
	app.QuizCatalog
	calls int
}

func (l *countingLoader) Question(ctx context.Context, questionID string) (domain.QuestionRef, error) {
	l.calls++
	return l.QuizCatalog.Question(ctx, questionID)
}

func seededCatalog() *CatalogStore {
	store := NewCatalogStore()
	store.Seed(domain.Profile{ID: "p1", Name: "Host"}, sampleQuiz())
	return store
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-1",
		ProfileID: "p1",
		Title:     "Arithmetic",
		Questions: []domain.Question{
			{
				ID:           "q1",
				Prompt:       "What is 2 + 2?",
				Options:      []string{"3", "4"},
				CorrectIndex: 1,
				Points:       100,
			},
			{
				ID:      "q2",
				Prompt:  "What is 3 + 3?",
				Options: []string{},
				Points:  50,
			},
		},
	}
}

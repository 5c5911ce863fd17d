package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/domain"
)

const fillTimeout = 5 * time.Second

// QuestionCache caches question lookups with TTL to avoid repeated DB hits on
// the live game path. Quiz existence checks are passed straight through.
type QuestionCache struct {
	loader app.QuizCatalog
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestion
}

type cachedQuestion struct {
	ref       domain.QuestionRef
	expiresAt time.Time
}

func NewQuestionCache(loader app.QuizCatalog, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestion),
	}
}

func (c *QuestionCache) QuizExists(ctx context.Context, quizID string) (bool, error) {
	return c.loader.QuizExists(ctx, quizID)
}

func (c *QuestionCache) Question(ctx context.Context, questionID string) (domain.QuestionRef, error) {
	if ref, ok := c.lookup(questionID); ok {
		return ref, nil
	}

	result, err, _ := c.sf.Do(questionID, func() (interface{}, error) {
		if ref, ok := c.lookup(questionID); ok {
			return ref, nil
		}

		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()
		ref, err := c.loader.Question(ctx, questionID)
		if err != nil {
			return domain.QuestionRef{}, err
		}

		c.mu.Lock()
		c.cache[questionID] = cachedQuestion{
			ref:       ref,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return ref, nil
	})
	if err != nil {
		return domain.QuestionRef{}, err
	}
	return result.(domain.QuestionRef), nil
}

// Invalidate drops cached entries so the next lookup reloads them.
func (c *QuestionCache) Invalidate(_ context.Context, questionIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range questionIDs {
		delete(c.cache, id)
	}
	return nil
}

func (c *QuestionCache) lookup(questionID string) (domain.QuestionRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[questionID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.QuestionRef{}, false
	}
	return entry.ref, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

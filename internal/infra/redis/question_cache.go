package redis

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/domain"
)

const fillTimeout = 5 * time.Second

// QuestionCache caches question lookups in Redis (hash per question) and falls
// back to a loader on cache miss.
// Entries are stored as: HSET quiz:question:{questionID} quiz_id {quizID} points {points} options {n}
type QuestionCache struct {
	client *redis.Client
	loader app.QuizCatalog
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader app.QuizCatalog, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) QuizExists(ctx context.Context, quizID string) (bool, error) {
	return c.loader.QuizExists(ctx, quizID)
}

func (c *QuestionCache) Question(ctx context.Context, questionID string) (domain.QuestionRef, error) {
	key := c.key(questionID)

	fields, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		if ref, ok := refFromCache(questionID, fields); ok {
			return ref, nil
		}
	}

	result, err, _ := c.sf.Do(questionID, func() (interface{}, error) {
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()

		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			if ref, ok := refFromCache(questionID, fields); ok {
				return ref, nil
			}
		}

		ref, err := c.loader.Question(ctx, questionID)
		if err != nil {
			return domain.QuestionRef{}, err
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key, "quiz_id", ref.QuizID, "points", ref.Points, "options", ref.OptionCount)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return ref, nil
	})
	if err != nil {
		return domain.QuestionRef{}, err
	}
	return result.(domain.QuestionRef), nil
}

// Invalidate deletes cached entries so the next lookup reloads them.
func (c *QuestionCache) Invalidate(ctx context.Context, questionIDs ...string) error {
	if len(questionIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(questionIDs))
	for _, id := range questionIDs {
		keys = append(keys, c.key(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *QuestionCache) key(questionID string) string {
	return "quiz:question:" + questionID
}

func refFromCache(questionID string, fields map[string]string) (domain.QuestionRef, bool) {
	points, err := strconv.Atoi(fields["points"])
	if err != nil || points <= 0 {
		return domain.QuestionRef{}, false
	}
	options, _ := strconv.Atoi(fields["options"])
	return domain.QuestionRef{
		ID:          questionID,
		QuizID:      fields["quiz_id"],
		Points:      points,
		OptionCount: options,
	}, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

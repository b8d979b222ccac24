package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"timelyhub-quiz-engine/internal/app"
	"timelyhub-quiz-engine/internal/domain"
)

// GeneratorCache caches generated question sets with a TTL so repeated setup
// requests for the same topic don't hit the generation service again.
// Requests carrying source text bypass the cache entirely (the document makes
// the output unique).
type GeneratorCache struct {
	upstream app.Generator
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group
	rnd      *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	questions []domain.RawQuestion
	expiresAt time.Time
}

func NewGeneratorCache(upstream app.Generator, ttl time.Duration) *GeneratorCache {
	return &GeneratorCache{
		upstream: upstream,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[string]cachedSet),
	}
}

func (c *GeneratorCache) Generate(ctx context.Context, req domain.QuizRequest) ([]domain.RawQuestion, error) {
	if req.SourceText != "" {
		return c.upstream.Generate(ctx, req)
	}
	key := cacheKey(req)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.upstream.Generate(ctx, req)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedSet{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawQuestion), nil
}

func cacheKey(req domain.QuizRequest) string {
	return fmt.Sprintf("%s|%s|%d", req.Topic, req.Difficulty, req.NumQuestions)
}

func (c *GeneratorCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticGenerator serves a canned question set; a stand-in for the real
// generation service in demos and tests.
type StaticGenerator struct {
	questions []domain.RawQuestion
}

func NewStaticGenerator(questions []domain.RawQuestion) *StaticGenerator {
	return &StaticGenerator{questions: questions}
}

func (g *StaticGenerator) Generate(_ context.Context, req domain.QuizRequest) ([]domain.RawQuestion, error) {
	if len(g.questions) == 0 {
		return nil, domain.ErrGenerationFailed
	}
	n := req.NumQuestions
	if n <= 0 || n > len(g.questions) {
		n = len(g.questions)
	}
	return g.questions[:n], nil
}

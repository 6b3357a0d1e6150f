package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
)

// Ensure AnswerCache implements the interface.
var _ driven.AnswerCache = (*AnswerCache)(nil)

// AnswerCache is an in-memory implementation of driven.AnswerCache.
// Entries are keyed by lowercased, trimmed question text.
type AnswerCache struct {
	mu      sync.RWMutex
	entries map[string]domain.CachedAnswer
}

// NewAnswerCache creates a new in-memory answer cache.
func NewAnswerCache() *AnswerCache {
	return &AnswerCache{
		entries: make(map[string]domain.CachedAnswer),
	}
}

// SaveAnswer stores an entry, replacing any entry with the same question.
// A curated entry is never replaced by a non-curated one.
func (c *AnswerCache) SaveAnswer(_ context.Context, entry *domain.CachedAnswer) error {
	if entry == nil || strings.TrimSpace(entry.Question) == "" {
		return domain.ErrInvalidInput
	}
	key := questionKey(entry.Question)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok && existing.Curated && !entry.Curated {
		return nil
	}

	e := *entry
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	c.entries[key] = e
	return nil
}

// ListAnswers returns every entry, oldest first.
func (c *AnswerCache) ListAnswers(_ context.Context) ([]domain.CachedAnswer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.CachedAnswer, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Question < out[j].Question
	})
	return out, nil
}

// PurgeAnswered removes every non-curated entry.
func (c *AnswerCache) PurgeAnswered(_ context.Context) (int, error) {
	return c.purge(false), nil
}

// PurgeCurated removes every curated entry.
func (c *AnswerCache) PurgeCurated(_ context.Context) (int, error) {
	return c.purge(true), nil
}

func (c *AnswerCache) purge(curated bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if e.Curated == curated {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func questionKey(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

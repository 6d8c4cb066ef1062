package tts

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Cached keeps the most recent renderings. Scripted replies repeat often
// (greeting, re-asked questions, closing contacts), so hits are common.
type Cached struct {
	next  Provider
	cache *lru.Cache[string, *Audio]
	log   *zap.SugaredLogger
}

func NewCached(next Provider, size int, logger *zap.SugaredLogger) (*Cached, error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[string, *Audio](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c, log: logger}, nil
}

func (c *Cached) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if a, ok := c.cache.Get(text); ok {
		c.log.Debugf("[TTS] 캐시 적중: %d bytes", len(a.Data))
		return a, nil
	}
	a, err := c.next.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, a)
	return a, nil
}

// Len cached renderings
func (c *Cached) Len() int {
	return c.cache.Len()
}

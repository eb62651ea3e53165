package main

import (
	"math/rand/v2"
	"time"
)

// pacer decides how long the relay sleeps between batches. An empty batch
// waits one poll interval, consecutive errors double the wait up to ceiling,
// and a full batch does not wait at all.
type pacer struct {
	base    time.Duration
	ceiling time.Duration
	jitter  time.Duration

	current time.Duration
	rand    func(n int64) int64
}

func newPacer(base, ceiling, jitter time.Duration) *pacer {
	return &pacer{base: base, ceiling: ceiling, jitter: jitter, current: base, rand: rand.Int64N}
}

// next returns the wait after a batch that handled n rows out of limit.
func (p *pacer) next(n, limit int, err error) time.Duration {
	switch {
	case err != nil:
		p.current = min(max(p.current, p.base)*2, p.ceiling)
		return p.withJitter(p.current)
	case n >= limit:
		p.current = p.base
		return 0
	default:
		p.current = p.base
		return p.withJitter(p.base)
	}
}

func (p *pacer) withJitter(d time.Duration) time.Duration {
	if d <= 0 || p.jitter <= 0 {
		return d
	}
	return d + time.Duration(p.rand(int64(p.jitter)))
}

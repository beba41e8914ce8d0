package ratelimit

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Pacer is the single request cadence shared by every worker of a run.
// Wait gates each physical request; Pause is the fixed delay taken after
// every attempt that got a response.
type Pacer struct {
	delay   time.Duration
	limiter *rate.Limiter
	sleep   SleepFunc
}

// NewPacer builds a pacer. delay below zero is treated as zero; rps of zero
// disables the request gate.
func NewPacer(delay time.Duration, rps float64) *Pacer {
	if delay < 0 {
		delay = 0
	}

	p := &Pacer{
		delay: delay,
		sleep: Sleep,
	}

	if rps > 0 {
		burst := int(math.Max(1, math.Ceil(rps)))
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	return p
}

// WithSleep replaces the sleep function, mainly for tests.
func (p *Pacer) WithSleep(fn SleepFunc) *Pacer {
	p.sleep = fn
	return p
}

func (p *Pacer) Delay() time.Duration {
	return p.delay
}

func (p *Pacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

func (p *Pacer) Pause(ctx context.Context) error {
	if p.delay <= 0 {
		return nil
	}
	return p.sleep(ctx, p.delay)
}

// Sleep blocks for d unless ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

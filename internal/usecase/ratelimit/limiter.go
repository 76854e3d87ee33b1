// Package ratelimit bounds how often an actor may fetch the upstream listing.
package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/ports"
)

// DefaultCooldown is the minimum spacing between two listing fetches of one actor.
const DefaultCooldown = 5 * time.Minute

// Limiter is a fixed-window limiter allowing one call per cooldown per actor.
// State lives in the store so it is shared across restarts and instances.
type Limiter struct {
	store    ports.CooldownRepository
	cooldown time.Duration
	now      func() time.Time
}

func New(store ports.CooldownRepository, cooldown time.Duration) *Limiter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Limiter{store: store, cooldown: cooldown, now: time.Now}
}

// WithClock replaces the time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// CheckAndRecord allows the call and records it, or denies it with the
// remaining wait rounded up to whole minutes.
func (l *Limiter) CheckAndRecord(ctx context.Context, actorID string) (domain.RateDecision, error) {
	now := l.now().UTC()
	ok, last, err := l.store.TryAcquire(ctx, actorID, now, l.cooldown)
	if err != nil {
		return domain.RateDecision{}, errors.Wrap(err, "rate limit")
	}
	if ok {
		return domain.RateDecision{Allowed: true}, nil
	}
	remaining := last.Add(l.cooldown).Sub(now)
	wait := int(math.Ceil(remaining.Minutes()))
	if wait < 1 {
		wait = 1
	}
	return domain.RateDecision{Allowed: false, WaitMinutes: wait}, nil
}

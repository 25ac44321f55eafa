// Package credential manages an ordered pool of API keys with rotation and
// per-key cooldown, so a batch run can survive rate limits by failing over
// to the next key instead of aborting.
package credential

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/litscan/litscan/pkg/claude"
)

// ErrNoCredentials is returned when no credential is configured, or when
// every credential in the pool is cooling down after a rate limit.
var ErrNoCredentials = eris.New("credential: no credentials available")

// RotateReason describes why the active credential is being abandoned.
type RotateReason string

const (
	// ReasonRateLimited places the current credential into cooldown.
	ReasonRateLimited RotateReason = "rate_limited"
	// ReasonAuthError abandons the current credential without cooldown.
	ReasonAuthError RotateReason = "auth_error"
)

// Credential is one API key plus its position and cooldown state. Cooldown
// state is process-local and starts cold each run.
type Credential struct {
	Index  int
	Key    string
	Client claude.Client

	cooldownUntil time.Time
}

func (c *Credential) coolingDown(now time.Time) bool {
	return now.Before(c.cooldownUntil)
}

// Pool holds the ordered credential sequence and the rotation cursor.
// It is accessed only from the orchestrator's single execution thread.
type Pool struct {
	creds    []*Credential
	cursor   int
	cooldown time.Duration

	now func() time.Time // test hook
}

// NewPool builds a pool from the configured key list. newClient is invoked
// once per key. Fails fast with ErrNoCredentials on an empty list.
func NewPool(keys []string, cooldown time.Duration, newClient func(key string) claude.Client) (*Pool, error) {
	if len(keys) == 0 {
		return nil, ErrNoCredentials
	}

	creds := make([]*Credential, len(keys))
	for i, key := range keys {
		creds[i] = &Credential{
			Index:  i,
			Key:    key,
			Client: newClient(key),
		}
	}

	return &Pool{
		creds:    creds,
		cooldown: cooldown,
		now:      time.Now,
	}, nil
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	return len(p.creds)
}

// Current returns the active credential.
func (p *Pool) Current() *Credential {
	return p.creds[p.cursor]
}

// Rotate abandons the current credential and advances circularly to the next
// one not in cooldown. On ReasonRateLimited the current credential enters
// cooldown first. When every credential is cooling down, Rotate returns
// ErrNoCredentials and the caller must treat the run as exhausted.
func (p *Pool) Rotate(reason RotateReason) (*Credential, error) {
	now := p.now()
	current := p.creds[p.cursor]

	if reason == ReasonRateLimited {
		current.cooldownUntil = now.Add(p.cooldown)
	}

	for i := 1; i <= len(p.creds); i++ {
		idx := (p.cursor + i) % len(p.creds)
		if p.creds[idx].coolingDown(now) {
			continue
		}
		p.cursor = idx
		zap.L().Info("rotated credential",
			zap.String("reason", string(reason)),
			zap.Int("from", current.Index),
			zap.Int("to", idx),
		)
		return p.creds[idx], nil
	}

	return nil, ErrNoCredentials
}

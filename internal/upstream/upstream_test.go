package upstream

import (
	"context"
	"errors"
	"sync"
	"time"

	"quotaflow-go/internal/credential"
)

// statusErr mimics a provider client error carrying a top-level status.
type statusErr struct{ status int }

func (e statusErr) Error() string   { return "upstream failure" }
func (e statusErr) StatusCode() int { return e.status }

var (
	errQuota = statusErr{status: 429}
	errBad   = errors.New("invalid argument: empty contents")
)

// countingPool wraps a real pool and records rotations.
type countingPool struct {
	*credential.Pool
	mu      sync.Mutex
	rotates int
}

func newCountingPool(keys ...string) *countingPool {
	creds := make([]credential.Credential, 0, len(keys))
	for _, k := range keys {
		creds = append(creds, credential.Credential(k))
	}
	return &countingPool{Pool: credential.NewPool(creds)}
}

func (p *countingPool) Rotate() {
	p.mu.Lock()
	p.rotates++
	p.mu.Unlock()
	p.Pool.Rotate()
}

func (p *countingPool) rotations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rotates
}

// recordingSleeper records requested waits without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// scriptedOp returns a per-credential outcome and records every call.
type scriptedOp struct {
	mu      sync.Mutex
	calls   []credential.Credential
	outcome func(cred credential.Credential, call int) (string, error)
}

func (s *scriptedOp) op(ctx context.Context, cred credential.Credential) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, cred)
	n := len(s.calls)
	s.mu.Unlock()
	return s.outcome(cred, n)
}

func (s *scriptedOp) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func alwaysFail(err error) *scriptedOp {
	return &scriptedOp{outcome: func(credential.Credential, int) (string, error) { return "", err }}
}

func succeedWith(v string) *scriptedOp {
	return &scriptedOp{outcome: func(credential.Credential, int) (string, error) { return v, nil }}
}

package credential

import (
	"sort"
	"sync"

	apperrors "quotaflow-go/internal/errors"
	"quotaflow-go/internal/events"
	"quotaflow-go/internal/monitoring"

	log "github.com/sirupsen/logrus"
)

// Pool owns the ordered credential set, the rotation cursor and the set of
// indices believed exhausted. Concurrent callers may over- or under-rotate;
// the self-healing reset keeps the pool usable either way.
//
// The exhausted gauge is written under mu. Events are published after mu is
// released, so subscribers may see them out of order; Seq restores it.
type Pool struct {
	mu          sync.Mutex
	credentials []Credential
	cursor      int
	exhausted   map[int]struct{}
	seq         uint64
	publisher   events.Publisher
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPublisher emits rotation and reset events on the given publisher.
func WithPublisher(p events.Publisher) PoolOption {
	return func(pool *Pool) { pool.publisher = p }
}

// NewPool builds a pool from creds, dropping blanks and duplicates.
func NewPool(creds []Credential, opts ...PoolOption) *Pool {
	p := &Pool{
		credentials: Normalize(creds),
		exhausted:   make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Current returns the credential under the cursor.
func (p *Pool) Current() (Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.credentials) == 0 {
		return "", apperrors.ErrEmptyPool
	}
	return p.credentials[p.cursor], nil
}

// Rotate marks the current credential exhausted and advances the cursor to
// the next non-exhausted index. When marking would leave every index
// exhausted the set is cleared first. No-op for pools of size <= 1.
func (p *Pool) Rotate() {
	p.mu.Lock()
	n := len(p.credentials)
	if n <= 1 {
		p.mu.Unlock()
		return
	}

	from := p.cursor
	p.exhausted[from] = struct{}{}
	reset := false
	if len(p.exhausted) >= n {
		p.exhausted = make(map[int]struct{})
		reset = true
	}

	next := from
	for step := 0; step < n; step++ {
		next = (next + 1) % n
		if _, skip := p.exhausted[next]; !skip {
			break
		}
	}
	p.cursor = next
	exhausted := len(p.exhausted)
	fromCred, toCred := p.credentials[from], p.credentials[next]
	rotSeq := p.nextSeqLocked()
	var resetSeq uint64
	if reset {
		resetSeq = p.nextSeqLocked()
	}
	monitoring.CredentialExhausted.Set(float64(exhausted))
	p.mu.Unlock()

	log.WithFields(log.Fields{
		"from":      fromCred.Masked(),
		"to":        toCred.Masked(),
		"exhausted": exhausted,
		"size":      n,
	}).Info("Rotated credential")
	p.recordRotation(rotSeq, from, next, exhausted, n)
	if reset {
		log.WithField("size", n).Warn("All credentials marked exhausted; clearing exhausted set")
		p.recordReset(resetSeq, ResetReasonSelfHeal, n)
	}
}

// MarkSuccess records that the credential under the cursor just served a
// call. Capacity is evidently available again, so the exhausted set is cleared.
func (p *Pool) MarkSuccess() {
	p.mu.Lock()
	had := len(p.exhausted)
	var seq uint64
	if had > 0 {
		p.exhausted = make(map[int]struct{})
		seq = p.nextSeqLocked()
		monitoring.CredentialExhausted.Set(0)
	}
	n := len(p.credentials)
	p.mu.Unlock()

	if had > 0 {
		log.WithField("cleared", had).Debug("Credential succeeded; clearing exhausted set")
		p.recordReset(seq, ResetReasonSuccess, n)
	}
}

// Reset clears the exhausted set without moving the cursor.
func (p *Pool) Reset() {
	p.mu.Lock()
	p.exhausted = make(map[int]struct{})
	n := len(p.credentials)
	seq := p.nextSeqLocked()
	monitoring.CredentialExhausted.Set(0)
	p.mu.Unlock()
	p.recordReset(seq, ResetReasonManual, n)
}

func (p *Pool) nextSeqLocked() uint64 {
	p.seq++
	return p.seq
}

// MaxAttempts is the executor's attempt budget for this pool: one try per
// credential plus one when rotation is possible, otherwise two.
func (p *Pool) MaxAttempts() int {
	if n := p.Size(); n > 1 {
		return n + 1
	}
	return 2
}

// Size returns the number of credentials.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.credentials)
}

// PoolSnapshot is a log- and API-safe view of the pool state.
type PoolSnapshot struct {
	Size      int      `json:"size"`
	Cursor    int      `json:"cursor"`
	Current   string   `json:"current,omitempty"`
	Masked    []string `json:"credentials"`
	Exhausted []int    `json:"exhausted"`
}

// Snapshot returns the current state with credentials masked.
func (p *Pool) Snapshot() PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := PoolSnapshot{
		Size:      len(p.credentials),
		Cursor:    p.cursor,
		Masked:    make([]string, 0, len(p.credentials)),
		Exhausted: make([]int, 0, len(p.exhausted)),
	}
	if len(p.credentials) > 0 {
		snap.Current = p.credentials[p.cursor].Masked()
	}
	for _, cred := range p.credentials {
		snap.Masked = append(snap.Masked, cred.Masked())
	}
	for idx := range p.exhausted {
		snap.Exhausted = append(snap.Exhausted, idx)
	}
	sort.Ints(snap.Exhausted)
	return snap
}

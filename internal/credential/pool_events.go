package credential

import (
	"context"
	"time"

	"quotaflow-go/internal/events"
	"quotaflow-go/internal/monitoring"
)

// Reasons attached to pool reset events.
const (
	ResetReasonSelfHeal = "self_heal"
	ResetReasonSuccess  = "success"
	ResetReasonManual   = "manual"
)

// RotationEvent is published on events.TopicCredentialRotated.
// Seq orders events from one pool.
type RotationEvent struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	Exhausted int       `json:"exhausted"`
	Size      int       `json:"size"`
}

// ResetEvent is published on events.TopicPoolReset.
type ResetEvent struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	Size      int       `json:"size"`
}

func (p *Pool) recordRotation(seq uint64, from, to, exhausted, size int) {
	monitoring.CredentialRotationsTotal.Inc()
	if p.publisher == nil {
		return
	}
	p.publisher.Publish(context.Background(), events.TopicCredentialRotated, RotationEvent{
		Seq:       seq,
		Timestamp: time.Now().UTC(),
		From:      from,
		To:        to,
		Exhausted: exhausted,
		Size:      size,
	}, nil)
}

func (p *Pool) recordReset(seq uint64, reason string, size int) {
	monitoring.CredentialPoolResetsTotal.WithLabelValues(reason).Inc()
	if p.publisher == nil {
		return
	}
	p.publisher.Publish(context.Background(), events.TopicPoolReset, ResetEvent{
		Seq:       seq,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		Size:      size,
	}, map[string]string{"reason": reason})
}

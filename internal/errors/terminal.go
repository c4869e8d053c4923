package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// EmptyPoolError is returned when no credentials are configured and no
// override is present.
type EmptyPoolError struct{}

func (EmptyPoolError) Error() string { return "credential pool is empty: no credentials configured" }

var (
	// ErrEmptyPool is the canonical EmptyPoolError value.
	ErrEmptyPool error = EmptyPoolError{}
	// ErrNoTiers is returned by the cascade when a feature defines no tiers.
	ErrNoTiers = stderrors.New("no tiers configured")
)

// TerminalQuotaError means a tier's attempt budget was spent on transient
// errors only. Last holds the final transient error.
type TerminalQuotaError struct {
	Tier     string
	Attempts int
	Last     error
}

func (e *TerminalQuotaError) Error() string {
	var b strings.Builder
	b.WriteString("all credentials/quota exhausted")
	if e.Tier != "" {
		fmt.Fprintf(&b, " for tier %q", e.Tier)
	}
	fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	if e.Last != nil {
		b.WriteString(": ")
		b.WriteString(e.Last.Error())
	}
	return b.String()
}

func (e *TerminalQuotaError) Unwrap() error { return e.Last }

// AllTiersExhaustedError is the single terminal error surfaced once every tier
// of a cascade ended in TerminalQuotaError.
type AllTiersExhaustedError struct {
	Tiers []string
	Last  error
}

func (e *AllTiersExhaustedError) Error() string {
	return fmt.Sprintf("service temporarily saturated, try again later (tiers tried: %s)", strings.Join(e.Tiers, ", "))
}

func (e *AllTiersExhaustedError) Unwrap() error { return e.Last }

// FatalRequestError labels an error that must not be retried.
type FatalRequestError struct {
	Err error
}

func (e *FatalRequestError) Error() string {
	if e.Err == nil {
		return "fatal request error"
	}
	return e.Err.Error()
}

func (e *FatalRequestError) Unwrap() error { return e.Err }

// IsTerminal reports whether err is a TerminalQuotaError or AllTiersExhaustedError.
func IsTerminal(err error) bool {
	var tq *TerminalQuotaError
	var all *AllTiersExhaustedError
	return stderrors.As(err, &tq) || stderrors.As(err, &all)
}

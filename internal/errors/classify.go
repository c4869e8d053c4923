package errors

import (
	stderrors "errors"
	"net/http"
	"strings"
)

// Class is the outcome of classifying an upstream failure.
type Class int

const (
	// Fatal errors are never retried: bad input, auth failures, logic errors.
	Fatal Class = iota
	// Transient errors signal rate limiting, quota exhaustion or overload.
	Transient
)

func (c Class) String() string {
	if c == Transient {
		return "transient"
	}
	return "fatal"
}

// StatusResourceExhausted is the provider status token for quota exhaustion.
const StatusResourceExhausted = "RESOURCE_EXHAUSTED"

// The classifier accepts any error that exposes one or more of these accessors.
// Wrapped errors are searched with errors.As, so callers may wrap freely.
type (
	statusCoder interface{ StatusCode() int }
	// responseStatuser is a client error carrying the nested response.status.
	responseStatuser interface{ ResponseStatus() int }
	detailCoder      interface{ DetailCode() int }
	detailStatuser   interface{ DetailStatus() string }
)

var transientMarkers = []string{"429", "403", strings.ToLower(StatusResourceExhausted), "quota"}

// Classify decides whether err is a transient capacity error or a fatal one.
// The checks run in a fixed order and the first match wins. It never panics;
// an error whose accessors panic classifies as Fatal, and anything explicitly
// labelled with FatalRequestError stays Fatal.
func Classify(err error) (class Class) {
	if err == nil {
		return Fatal
	}
	defer func() {
		if r := recover(); r != nil {
			class = Fatal
		}
	}()

	var fatal *FatalRequestError
	if stderrors.As(err, &fatal) {
		return Fatal
	}

	var sc statusCoder
	if stderrors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return Transient
		}
	}

	var rs responseStatuser
	if stderrors.As(err, &rs) && rs.ResponseStatus() == http.StatusTooManyRequests {
		return Transient
	}

	var dc detailCoder
	if stderrors.As(err, &dc) && dc.DetailCode() == http.StatusTooManyRequests {
		return Transient
	}
	var ds detailStatuser
	if stderrors.As(err, &ds) && ds.DetailStatus() == StatusResourceExhausted {
		return Transient
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return Transient
		}
	}
	return Fatal
}

// IsTransient reports whether err classifies as Transient.
func IsTransient(err error) bool { return Classify(err) == Transient }

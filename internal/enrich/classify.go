package enrich

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Class buckets an enrichment error by how the caller must react to it.
type Class int

// Error classes.
const (
	// ClassTransient errors are retried.
	ClassTransient Class = iota
	// ClassQuota errors (HTTP 429, exhausted quota) latch the breaker.
	ClassQuota
	// ClassModelNotFound errors latch the breaker like quota errors.
	ClassModelNotFound
	// ClassStructural errors come from output that is not usable JSON.
	ClassStructural
	// ClassCanceled errors come from the caller's context.
	ClassCanceled
)

func (c Class) String() string {
	switch c {
	case ClassQuota:
		return "quota"
	case ClassModelNotFound:
		return "model_not_found"
	case ClassStructural:
		return "structural"
	case ClassCanceled:
		return "canceled"
	default:
		return "transient"
	}
}

// Latches reports whether errors of this class open the breaker.
func (c Class) Latches() bool {
	return c == ClassQuota || c == ClassModelNotFound
}

// statusCoder is implemented by provider errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// Classify maps an error onto a Class. Provider errors are matched on their
// status code first and on their message second.
func Classify(err error) Class {
	if err == nil {
		return ClassTransient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCanceled
	}
	if errors.Is(err, ErrMalformedJSON) {
		return ClassStructural
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.HTTPStatus() {
		case http.StatusTooManyRequests:
			return ClassQuota
		case http.StatusNotFound:
			return ClassModelNotFound
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "resource exhausted"):
		return ClassQuota
	case strings.Contains(msg, "404") && strings.Contains(msg, "not found"):
		return ClassModelNotFound
	}
	return ClassTransient
}

package etl

import (
	"errors"
	"fmt"
)

// ErrorKind classifies where in the pipeline a failure happened.
type ErrorKind string

const (
	// KindProvider covers timeouts, malformed payloads and empty results from a source adapter.
	KindProvider ErrorKind = "provider"
	// KindTransform covers coercion failures; the batch is treated as empty.
	KindTransform ErrorKind = "transform"
	// KindStore covers constraint violations and connection loss; the batch is rolled back.
	KindStore ErrorKind = "store"
	// KindEnrichment covers sentiment and relevance failures for one article.
	KindEnrichment ErrorKind = "enrichment"
)

// ErrNoData is the provider "no data" sentinel.
var ErrNoData = errors.New("no data")

// Error is a pipeline failure tagged with its kind and the entity it concerns.
type Error struct {
	Kind   ErrorKind
	Op     string // e.g. "extract_prices", "load_news"
	Entity string // symbol, query or url
	Err    error
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s %s [%s]: %v", e.Op, e.Entity, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op, entity string, err error) *Error {
	return &Error{Kind: kind, Op: op, Entity: entity, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

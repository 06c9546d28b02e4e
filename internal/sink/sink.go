// Package sink defines where parsed vacancy records are persisted.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/vacancy-crawler/internal/vacancy"
)

// Sink receives records in discovery order, one call at a time, followed by
// a single Finalize once the crawl is over.
type Sink interface {
	AppendRecord(ctx context.Context, rec *vacancy.Record) error
	Finalize(ctx context.Context) error
}

// Multi fans every call out to each sink in order.
type Multi []Sink

// AppendRecord stops at the first failing sink.
func (m Multi) AppendRecord(ctx context.Context, rec *vacancy.Record) error {
	for i, s := range m {
		if err := s.AppendRecord(ctx, rec); err != nil {
			return fmt.Errorf("sink %d append record %d: %w", i, rec.ID, err)
		}
	}
	return nil
}

// Finalize calls every sink and joins their errors.
func (m Multi) Finalize(ctx context.Context) error {
	var errs []error
	for i, s := range m {
		if err := s.Finalize(ctx); err != nil {
			errs = append(errs, fmt.Errorf("sink %d finalize: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

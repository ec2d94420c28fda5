// Package repository persists the append-only check-in ledger. The
// ledger is the single source of truth: occupancy is always derived
// from ReadAll, never stored back.
package repository

import (
	"context"

	"github.com/kinshuk1456/summit-checkin-app/internal/domain"
)

// CheckinsRepo is the write/read surface of the check-in ledger.
//
// Record normalizes the event's email and enforces at most one row per
// address: any earlier row for the same person is removed in the same
// transaction before the new one is inserted, so a re-submission moves
// the check-in rather than duplicating it. The returned moved flag
// reports whether an earlier row was replaced.
type CheckinsRepo interface {
	Record(ctx context.Context, ev domain.CheckinEvent) (moved bool, err error)
	ReadAll(ctx context.Context) ([]domain.CheckinEvent, error)
	Reset(ctx context.Context) error
	Close() error
}

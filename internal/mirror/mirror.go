// Package mirror pushes accepted check-ins to a secondary spreadsheet
// copy for organizers who live in Excel. The mirror is best effort: a
// slow or broken target never blocks or fails the primary write.
package mirror

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kinshuk1456/summit-checkin-app/internal/domain"
)

// Row is one mirrored check-in, keyed by email like the ledger.
type Row struct {
	TsUTC     string `json:"ts_utc"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Attending string `json:"attending"`
	Room      string `json:"room"`
	Session   string `json:"session"`
}

// RowFromEvent converts a ledger event into its mirror row.
func RowFromEvent(ev domain.CheckinEvent) Row {
	return Row{
		TsUTC:     ev.TsUTC,
		Name:      ev.Name,
		Email:     ev.Email,
		Attending: ev.Attending,
		Room:      ev.Room,
		Session:   ev.Session,
	}
}

// Target is one mirror destination. Upsert replaces the row for the
// same person when present, appends otherwise.
type Target interface {
	Name() string
	Upsert(ctx context.Context, row Row) error
}

type job struct {
	id  string
	row Row
}

// Worker feeds queued rows to a target on its own goroutine. Enqueue
// never blocks; when the queue is full the row is dropped and logged,
// which is acceptable because the ledger stays authoritative.
type Worker struct {
	target   Target
	jobs     chan job
	timeout  time.Duration
	failures atomic.Int64
	logger   *zap.Logger
}

func NewWorker(target Target, queueSize int, logger *zap.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Worker{
		target:  target,
		jobs:    make(chan job, queueSize),
		timeout: 15 * time.Second,
		logger:  logger,
	}
}

// Enqueue hands a row to the worker and reports whether it was queued.
func (w *Worker) Enqueue(row Row) bool {
	j := job{id: uuid.NewString(), row: row}
	select {
	case w.jobs <- j:
		return true
	default:
		w.logger.Warn("mirror queue full, dropping row",
			zap.String("job_id", j.id),
			zap.String("email", row.Email),
			zap.String("target", w.target.Name()),
		)
		return false
	}
}

// Failures reports how many upserts have failed since the worker
// started.
func (w *Worker) Failures() int64 {
	return w.failures.Load()
}

// Run consumes the queue until ctx is cancelled, then drains whatever
// is still queued so an orderly shutdown does not lose accepted rows.
// Target failures are logged and counted; the worker moves on.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("mirror worker started", zap.String("target", w.target.Name()))
	for {
		select {
		case <-ctx.Done():
			w.drain()
			w.logger.Info("mirror worker stopped",
				zap.Int64("failed_upserts", w.failures.Load()))
			return
		case j := <-w.jobs:
			w.process(ctx, j)
		}
	}
}

// drain flushes jobs queued at shutdown. The parent context is already
// dead, so each job runs against a fresh one with the usual timeout.
func (w *Worker) drain() {
	for {
		select {
		case j := <-w.jobs:
			w.process(context.Background(), j)
		default:
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.target.Upsert(jobCtx, j.row); err != nil {
		w.failures.Add(1)
		w.logger.Warn("mirror upsert failed",
			zap.String("job_id", j.id),
			zap.String("email", j.row.Email),
			zap.String("target", w.target.Name()),
			zap.Error(err),
		)
		return
	}
	w.logger.Debug("mirror upsert done",
		zap.String("job_id", j.id),
		zap.String("target", w.target.Name()),
		zap.Duration("took", time.Since(start)),
	)
}

package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"PredictionLedger/internal/observability"
)

// CoreOutput mirrors core.CoreOutput so the persistence package does not
// depend on the core. The orchestrator (cmd/main.go) bridges between them.
type CoreOutput struct {
	EventRow    EventRow
	JournalRows []JournalRow
}

// batch accumulates rows between flushes.
type batch struct {
	events   []EventRow
	journals []JournalRow
}

func (b *batch) add(out CoreOutput) {
	b.events = append(b.events, out.EventRow)
	b.journals = append(b.journals, out.JournalRows...)
}

func (b *batch) reset() {
	b.events = b.events[:0]
	b.journals = b.journals[:0]
}

// PersistenceWorker drains the persist channel and batch-writes to Postgres.
// This goroutine runs independently from the deterministic core. The persist
// channel uses BLOCKING sends from the core, so if this worker falls behind,
// the core stalls — guaranteeing no event is lost.
type PersistenceWorker struct {
	writer       *EventLogWriter
	inputChan    <-chan CoreOutput
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
}

func NewPersistenceWorker(
	db *sql.DB,
	inputChan <-chan CoreOutput,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *PersistenceWorker {
	return &PersistenceWorker{
		writer:       NewEventLogWriter(db, batchSize, flushTimeout),
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
	}
}

// Run batches incoming outputs and flushes when the batch fills or the
// flush timeout expires. Blocks until ctx is cancelled or the channel closes.
func (pw *PersistenceWorker) Run(ctx context.Context) error {
	b := &batch{
		events: make([]EventRow, 0, pw.batchSize),
		// Most events carry a single journal (stake, payout, fee), so the
		// journal batch rarely outgrows the event batch.
		journals: make([]JournalRow, 0, pw.batchSize*2),
	}

	timer := time.NewTimer(pw.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			pw.finalFlush(b)
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				pw.finalFlush(b)
				return nil
			}

			b.add(output)
			if len(b.events) < pw.batchSize {
				continue
			}

			if err := pw.flushWithRetry(ctx, b.events, b.journals); err != nil {
				log.Printf("ERROR: batch flush failed after retries: %v", err)
			}
			b.reset()
			timer.Reset(pw.flushTimeout)

		case <-timer.C:
			if len(b.events) > 0 {
				if err := pw.flushWithRetry(ctx, b.events, b.journals); err != nil {
					log.Printf("ERROR: timeout flush failed after retries: %v", err)
				}
				b.reset()
			}
			timer.Reset(pw.flushTimeout)
		}
	}
}

// finalFlush writes whatever is buffered during shutdown, detached from
// the cancelled context.
func (pw *PersistenceWorker) finalFlush(b *batch) {
	if len(b.events) == 0 {
		return
	}
	if err := pw.flush(context.Background(), b.events, b.journals); err != nil {
		log.Printf("ERROR: final flush failed: %v", err)
	}
}

// flushWithRetry attempts to flush with exponential backoff. The worker
// NEVER drops events — it retries until the write succeeds or the context
// is cancelled (graceful shutdown).
func (pw *PersistenceWorker) flushWithRetry(ctx context.Context, events []EventRow, journals []JournalRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		err := pw.flush(ctx, events, journals)
		if err == nil {
			if attempt > 0 {
				log.Printf("INFO: persistence flush succeeded after %d retries", attempt)
			}
			return nil
		}

		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("retry").Inc()
			pw.metrics.PersistRetry.Inc()
		}

		log.Printf("WARN: persistence retry attempt %d (backoff=%v, events=%d): %v",
			attempt+1, backoff, len(events), err)

		select {
		case <-ctx.Done():
			// Shutdown mid-retry: one last attempt with a background
			// context so the buffered batch is not lost.
			if finalErr := pw.flush(context.Background(), events, journals); finalErr != nil {
				return fmt.Errorf("final flush on shutdown failed: %w", finalErr)
			}
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// flush writes events and journals in a single transaction.
func (pw *PersistenceWorker) flush(ctx context.Context, events []EventRow, journals []JournalRow) error {
	start := time.Now()

	tx, err := pw.writer.db.BeginTx(ctx, nil)
	if err != nil {
		pw.countError("tx_begin")
		return err
	}
	defer tx.Rollback()

	if err := pw.writer.WriteEventBatch(ctx, tx, events); err != nil {
		pw.countError("write_events")
		return err
	}
	if err := pw.writer.WriteJournalBatch(ctx, tx, journals); err != nil {
		pw.countError("write_journals")
		return err
	}
	if err := tx.Commit(); err != nil {
		pw.countError("tx_commit")
		return err
	}

	if pw.metrics != nil {
		pw.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		pw.metrics.PersistBatchSize.Observe(float64(len(events)))
		pw.metrics.PersistEventsWritten.Add(float64(len(events)))
		pw.metrics.PersistJournalsWritten.Add(float64(len(journals)))
		if len(events) > 0 {
			pw.metrics.PersistLastSequence.Set(float64(events[len(events)-1].Sequence))
		}
	}

	return nil
}

func (pw *PersistenceWorker) countError(stage string) {
	if pw.metrics != nil {
		pw.metrics.PersistErrors.WithLabelValues(stage).Inc()
	}
}

// GetWriter returns the underlying writer.
func (pw *PersistenceWorker) GetWriter() *EventLogWriter {
	return pw.writer
}

// MarshalPayload is a convenience wrapper for JSON-encoding event payloads.
// JSON keeps the payload column debuggable with plain SQL.
func MarshalPayload(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("WARN: failed to marshal payload: %v", err)
		return []byte("{}")
	}
	return data
}

package db

import (
	"context"
	"database/sql"
)

// writeQueueDepth bounds how many ledger writes may be waiting on the
// single writer before enqueueing blocks.
const writeQueueDepth = 256

// TxFn runs inside the writer's transaction.  Returning an error rolls
// the transaction back; the error is handed to the caller unchanged, so
// sentinel errors (ErrOutOfOrder, ErrDuplicateEvent) survive the trip
// through the worker.
type TxFn func(ctx context.Context, tx *sql.Tx) error

type writeReq struct {
	ctx    context.Context
	fn     TxFn
	result chan error
}

// Worker serializes all writes through one goroutine and one transaction
// at a time.  SQLite allows a single writer; funneling every mutation
// through here turns SQLITE_BUSY from a runtime hazard into queueing.
type Worker struct {
	db      *sql.DB
	queue   chan writeReq
	stopped chan struct{}
}

func NewWorker(db *sql.DB) *Worker {
	w := &Worker{
		db:      db,
		queue:   make(chan writeReq, writeQueueDepth),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// Close drains the queue and stops the writer goroutine.  Pending writes
// still execute; new Do calls after Close panic.
func (w *Worker) Close() {
	close(w.queue)
	<-w.stopped
}

// Do runs fn in its own transaction on the writer goroutine and returns
// fn's error (or the commit error).  If ctx expires while the write is
// queued or executing, Do returns early with ctx.Err(); the write itself
// still runs to completion and its result is discarded.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	req := writeReq{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case w.queue <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run() {
	defer close(w.stopped)

	for req := range w.queue {
		req.result <- w.execute(req)
	}
}

func (w *Worker) execute(req writeReq) error {
	// The caller may have given up while the request sat in the queue.
	if err := req.ctx.Err(); err != nil {
		return err
	}

	tx, err := w.db.BeginTx(req.ctx, nil)
	if err != nil {
		return err
	}

	if err := req.fn(req.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

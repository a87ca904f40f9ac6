package engine

import (
	"slices"

	"github.com/roach88/stepdoc/internal/metrics"
)

// transaction is a recorded, undoable unit of logged mutations.
type transaction struct {
	seq int
	ops []op
}

// TransactionInfo summarizes a committed transaction for display.
type TransactionInfo struct {
	Seq int      `json:"seq"`
	Ops []string `json:"ops"`
}

func (tx *transaction) info() TransactionInfo {
	ops := make([]string, len(tx.ops))
	for i, o := range tx.ops {
		ops[i] = o.describe()
	}
	return TransactionInfo{Seq: tx.seq, Ops: ops}
}

// txLog is the Idle/Recording state machine with a bounded history and a
// single redo slot.
type txLog struct {
	current *transaction // non-nil while recording
	history []*transaction
	redo    *transaction
	size    int
	seq     int
}

func (l *txLog) recording() bool {
	return l.current != nil
}

// push appends tx and evicts the oldest entries beyond the bound.
func (l *txLog) push(tx *transaction) {
	l.history = append(l.history, tx)
	l.trim()
}

func (l *txLog) trim() {
	if over := len(l.history) - l.size; over > 0 {
		clear(l.history[:over])
		l.history = l.history[over:]
	}
}

// record appends o to the open transaction, if there is one.
func (d *Document) record(o op) {
	if d.log.current != nil {
		d.log.current.ops = append(d.log.current.ops, o)
	}
}

// BeginTransaction starts recording. Nested transactions are not supported.
func (d *Document) BeginTransaction() error {
	if d.log.recording() {
		return illegalState("BeginTransaction", "a transaction is already open")
	}
	if d.batch.active {
		// fix-ups for removals made before this point belong to no transaction
		d.flushCascade()
	}
	d.log.seq++
	d.log.current = &transaction{seq: d.log.seq}
	d.log.redo = nil

	d.logger.Debug("transaction begun", "seq", d.log.seq)
	return nil
}

// EndTransaction commits the open transaction to history, even when it holds
// no ops, and clears the redo slot. Pending batch fix-ups are flushed into the
// transaction first. Calling it while idle does nothing.
func (d *Document) EndTransaction() error {
	if !d.log.recording() {
		return nil
	}
	if d.batch.active {
		d.flushCascade()
	}

	tx := d.log.current
	d.log.current = nil
	d.log.push(tx)
	d.log.redo = nil

	metrics.Transactions.WithLabelValues(metrics.OutcomeCommitted).Inc()
	d.logger.Info("transaction committed",
		"seq", tx.seq,
		"ops", len(tx.ops),
		"history", len(d.log.history),
	)
	return nil
}

// DiscardTransaction rolls back the open transaction immediately and drops
// it without touching history. Calling it while idle does nothing.
func (d *Document) DiscardTransaction() error {
	if !d.log.recording() {
		return nil
	}

	tx := d.log.current
	d.log.current = nil
	for i := len(tx.ops) - 1; i >= 0; i-- {
		tx.ops[i].undo(d)
	}

	metrics.Transactions.WithLabelValues(metrics.OutcomeDiscarded).Inc()
	d.logger.Info("transaction discarded", "seq", tx.seq, "ops", len(tx.ops))
	return nil
}

// Undo reverts the most recent committed transaction and moves it to the
// redo slot. It does nothing when history is empty. When an unrecorded edit
// has since taken an identity or unique key the transaction would restore,
// Undo fails with CodeDuplicate and leaves the document and history as they
// were.
func (d *Document) Undo() error {
	if err := d.checkReplayable("Undo"); err != nil {
		return err
	}
	n := len(d.log.history)
	if n == 0 {
		return nil
	}

	tx := d.log.history[n-1]
	reversed := slices.Clone(tx.ops)
	slices.Reverse(reversed)
	if err := d.checkReplay("Undo", reversed, true); err != nil {
		return err
	}
	d.log.history[n-1] = nil
	d.log.history = d.log.history[:n-1]

	for i := len(tx.ops) - 1; i >= 0; i-- {
		tx.ops[i].undo(d)
	}
	d.log.redo = tx

	metrics.Replays.WithLabelValues(metrics.DirectionUndo).Inc()
	d.logger.Info("transaction undone", "seq", tx.seq, "ops", len(tx.ops))
	return nil
}

// Redo re-applies the transaction in the redo slot and pushes it back onto
// history. It does nothing when the slot is empty. Like Undo it fails with
// CodeDuplicate, changing nothing, when the replay would claim an identity or
// unique key another entity now holds.
func (d *Document) Redo() error {
	if err := d.checkReplayable("Redo"); err != nil {
		return err
	}
	tx := d.log.redo
	if tx == nil {
		return nil
	}
	if err := d.checkReplay("Redo", tx.ops, false); err != nil {
		return err
	}

	for _, o := range tx.ops {
		o.redo(d)
	}
	d.log.redo = nil
	d.log.push(tx)

	metrics.Replays.WithLabelValues(metrics.DirectionRedo).Inc()
	d.logger.Info("transaction redone", "seq", tx.seq, "ops", len(tx.ops))
	return nil
}

func (d *Document) checkReplayable(op string) error {
	if d.log.recording() {
		return illegalState(op, "a transaction is open")
	}
	if d.batch.active {
		return illegalState(op, "batch mode is active")
	}
	return nil
}

// SetHistorySize bounds the history to n transactions, discarding the oldest
// first. Later commits respect the new bound.
func (d *Document) SetHistorySize(n int) error {
	if n < 0 {
		return illegalState("SetHistorySize", "history size must not be negative, got %d", n)
	}
	d.log.size = n
	d.log.trim()
	return nil
}

// HistorySize returns the current history bound.
func (d *Document) HistorySize() int {
	return d.log.size
}

// HistoryLen returns the number of committed transactions available to Undo.
func (d *Document) HistoryLen() int {
	return len(d.log.history)
}

// InTransaction reports whether a transaction is open.
func (d *Document) InTransaction() bool {
	return d.log.recording()
}

// CanUndo reports whether Undo would revert something.
func (d *Document) CanUndo() bool {
	return d.checkReplayable("") == nil && len(d.log.history) > 0
}

// CanRedo reports whether Redo would re-apply something.
func (d *Document) CanRedo() bool {
	return d.checkReplayable("") == nil && d.log.redo != nil
}

// History summarizes the committed transactions, oldest first.
func (d *Document) History() []TransactionInfo {
	out := make([]TransactionInfo, len(d.log.history))
	for i, tx := range d.log.history {
		out[i] = tx.info()
	}
	return out
}

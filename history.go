package gldf

// defaultHistoryLimit caps retained undo snapshots; see WithHistoryLimit.
const defaultHistoryLimit = 50

// history keeps compressed JSON snapshots of the document. snaps[:index]
// are undo states oldest-first; snaps[index:] are redo states created when
// the user undoes past a checkpoint.
type history struct {
	snaps [][]byte
	index int
}

// Checkpoint records the current document state as an undo point. Call it
// before a mutation you may want to roll back. Old snapshots beyond the
// configured limit are discarded oldest-first, and any redo states are
// dropped (a new edit forks the timeline).
func (e *Engine) Checkpoint() error {
	snap, err := e.snapshot()
	if err != nil {
		return err
	}
	e.history.snaps = append(e.history.snaps[:e.history.index], snap)
	if limit := e.cfg.historyLimit; limit > 0 && len(e.history.snaps) > limit {
		e.history.snaps = e.history.snaps[len(e.history.snaps)-limit:]
	}
	e.history.index = len(e.history.snaps)
	return nil
}

// Undo restores the most recent checkpoint. It reports whether a restore
// happened; a failed snapshot decode leaves the document untouched and
// reports false. The undone state stays available for Redo.
func (e *Engine) Undo() bool {
	h := &e.history
	if h.index == 0 {
		return false
	}
	if h.index == len(h.snaps) {
		// Entering undo territory: keep the live state so Redo can
		// come back to it.
		cur, err := e.snapshot()
		if err != nil {
			return false
		}
		h.snaps = append(h.snaps, cur)
	}
	p, err := e.restore(h.snaps[h.index-1])
	if err != nil {
		return false
	}
	h.index--
	e.product = p
	e.modified = true
	return true
}

// Redo re-applies a state previously undone. It reports whether a restore
// happened.
func (e *Engine) Redo() bool {
	h := &e.history
	if h.index >= len(h.snaps)-1 {
		return false
	}
	p, err := e.restore(h.snaps[h.index+1])
	if err != nil {
		return false
	}
	h.index++
	e.product = p
	e.modified = true
	return true
}

// CanUndo reports whether Undo would restore a state.
func (e *Engine) CanUndo() bool { return e.history.index > 0 }

// CanRedo reports whether Redo would restore a state.
func (e *Engine) CanRedo() bool { return e.history.index < len(e.history.snaps)-1 }

// ClearHistory drops all undo and redo states.
func (e *Engine) ClearHistory() {
	e.history = history{}
}

// HistoryDepth returns the number of states Undo can step back through.
func (e *Engine) HistoryDepth() int { return e.history.index }

func (e *Engine) snapshot() ([]byte, error) {
	raw, err := MarshalProductJSON(e.product)
	if err != nil {
		return nil, err
	}
	return compressSnapshot(e.cfg.snapshotComp, raw)
}

func (e *Engine) restore(snap []byte) (*Product, error) {
	raw, err := decompressSnapshot(snap, e.cfg.limits.MaxSnapshotSize)
	if err != nil {
		return nil, err
	}
	return ParseProductJSON(raw, WithReadLimits(e.cfg.limits))
}

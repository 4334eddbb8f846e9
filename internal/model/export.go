package model

import (
	"encoding/json"
	"fmt"
)

// taskContextFormatVersion is bumped whenever the exported shape changes in
// a way Import must reject rather than silently misread.
const taskContextFormatVersion = 1

// taskContextEnvelope is the on-disk/on-wire document: the TaskContext
// shape from §3 plus a format version tag, per §6.
type taskContextEnvelope struct {
	FormatVersion int `json:"format_version"`
	TaskContext
}

// Export serializes t as a version-tagged JSON document. Import applied to
// the result reconstructs an equal TaskContext (§8.6).
func (t TaskContext) Export() ([]byte, error) {
	envelope := taskContextEnvelope{
		FormatVersion: taskContextFormatVersion,
		TaskContext:   t,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("export task context %s: %w", t.TaskID, err)
	}
	return data, nil
}

// Import replaces t's contents with the TaskContext encoded in data,
// produced by a prior call to Export. It rejects a format version it
// doesn't recognize rather than guessing at a shape it can't guarantee.
func (t *TaskContext) Import(data []byte) error {
	var envelope taskContextEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("import task context: %w", err)
	}
	if envelope.FormatVersion != taskContextFormatVersion {
		return fmt.Errorf("import task context: unsupported format version %d", envelope.FormatVersion)
	}
	*t = envelope.TaskContext
	return nil
}

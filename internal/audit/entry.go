package audit

import "github.com/ppiankov/clearlift/internal/model"

// Entry is one line in the hash-chained JSONL audit log.
// The embedded event is a flat struct (no maps), so json.Marshal field
// order is deterministic and hashes are reproducible.
type Entry struct {
	model.Event
	PrevHash string `json:"prev_hash"`
}

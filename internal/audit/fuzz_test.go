package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/clearlift/internal/model"
)

func FuzzVerify(f *testing.F) {
	// Seed with a valid 3-entry chain
	tmpDir := f.TempDir()
	validLog := filepath.Join(tmpDir, "valid.jsonl")
	al, err := Open(validLog)
	if err != nil {
		f.Fatal(err)
	}
	for _, kind := range []model.EventKind{model.EventCallPlaced, model.EventMoving, model.EventDoorOpened} {
		al.Record(model.Event{Kind: kind, RequestID: "r-fuzz", AgentID: "agent-fuzz", Target: model.Secure})
	}
	al.Close()
	validData, _ := os.ReadFile(validLog)
	f.Add(validData)

	f.Add([]byte{})
	f.Add([]byte(`{"not":"a valid entry"}` + "\n"))
	f.Add([]byte(`{"kind":"moving","target":"X9"}` + "\n"))
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, data []byte) {
		tmpFile := filepath.Join(t.TempDir(), "fuzz.jsonl")
		os.WriteFile(tmpFile, data, 0644)

		// Must not panic
		Verify(tmpFile)
	})
}

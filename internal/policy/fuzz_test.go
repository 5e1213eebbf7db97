package policy

import (
	"testing"

	"github.com/ppiankov/clearlift/internal/model"
)

func FuzzDecide(f *testing.F) {
	f.Add(0, 0)
	f.Add(1, 1)
	f.Add(2, 3)
	f.Add(-1, 4)
	f.Add(7, -9)

	f.Fuzz(func(t *testing.T, level, floor int) {
		sec, fl := model.SecurityLevel(level), model.Floor(floor)
		res := Decide(sec, fl)
		if res.Allowed() != CanAccess(sec, fl) {
			t.Fatalf("Decide(%d, %d) disagrees with CanAccess", level, floor)
		}
		if !fl.Valid() && res.Allowed() {
			t.Fatalf("unknown floor %d allowed", floor)
		}
		if res.PolicyID == "" || res.Reason == "" {
			t.Fatalf("Decide(%d, %d) missing reason or policy id", level, floor)
		}
	})
}

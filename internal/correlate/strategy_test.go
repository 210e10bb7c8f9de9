package correlate

import (
	"testing"
	"time"
)

func TestAlternatePairsCandidates(t *testing.T) {
	tests := []struct {
		name        string
		records     int
		wantCands   []string
		wantDropped []string
	}{
		{"empty", 0, nil, nil},
		{"single record cannot pair", 1, nil, []string{"obj-00"}},
		{"one pair", 2, []string{"obj-01"}, nil},
		{"two pairs", 4, []string{"obj-01", "obj-03"}, nil},
		{"odd tail dropped", 5, []string{"obj-01", "obj-03"}, []string{"obj-04"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offsets := make([]time.Duration, tt.records)
			for i := range offsets {
				offsets[i] = time.Duration(i) * time.Minute
			}
			cands, dropped := AlternatePairs{}.Candidates(recordsAt(offsets...))

			if len(cands) != len(tt.wantCands) {
				t.Fatalf("expected %d candidates, got %d", len(tt.wantCands), len(cands))
			}
			for i, want := range tt.wantCands {
				if cands[i].Record.ObjectID != want {
					t.Errorf("candidate %d: expected %q, got %q", i, want, cands[i].Record.ObjectID)
				}
				if cands[i].Partner == nil {
					t.Errorf("candidate %d: expected a partner record", i)
				}
			}
			if len(dropped) != len(tt.wantDropped) {
				t.Fatalf("expected %d dropped, got %d", len(tt.wantDropped), len(dropped))
			}
			for i, want := range tt.wantDropped {
				if dropped[i].ObjectID != want {
					t.Errorf("dropped %d: expected %q, got %q", i, want, dropped[i].ObjectID)
				}
			}
		})
	}
}

func TestStrategyByName(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"", "alternate-pairs", true},
		{"alternate-pairs", "alternate-pairs", true},
		{"every-record", "every-record", true},
		{"nearest-neighbor", "", false},
	}

	for _, tt := range tests {
		s, ok := StrategyByName(tt.in)
		if ok != tt.wantOK {
			t.Errorf("StrategyByName(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && s.Name() != tt.want {
			t.Errorf("StrategyByName(%q) = %q, want %q", tt.in, s.Name(), tt.want)
		}
	}
}

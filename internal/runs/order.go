package runs

import (
	"sort"
	"time"

	"github.com/roach88/runview/internal/model"
)

// timestampLayouts are tried in order when parsing a run timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ByPriority returns a copy of runs ordered for slot allocation: running
// runs first, then newest timestamp first. Runs without a parseable timestamp
// go last. The sort is stable.
func ByPriority(runs []model.Run) []model.Run {
	out := make([]model.Run, len(runs))
	copy(out, runs)

	stamps := make(map[string]time.Time, len(out))
	for _, r := range out {
		if ts, ok := parseTimestamp(r.Timestamp); ok {
			stamps[r.ID] = ts
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Running != b.Running {
			return a.Running
		}
		ta, aok := stamps[a.ID]
		tb, bok := stamps[b.ID]
		switch {
		case aok && bok:
			return ta.After(tb)
		case aok != bok:
			return aok
		}
		return false
	})
	return out
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

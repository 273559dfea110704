package tui

// recall keeps recently submitted lines for Up/Down browsing.
type recall struct {
	entries []string
	limit   int
	pos     int // len(entries) when not browsing
}

func newRecall(limit int) *recall {
	return &recall{limit: limit}
}

// add records a submitted line and stops browsing. A repeat of the most
// recent line is not stored twice.
func (r *recall) add(line string) {
	if n := len(r.entries); n == 0 || r.entries[n-1] != line {
		r.entries = append(r.entries, line)
		if len(r.entries) > r.limit {
			r.entries = r.entries[len(r.entries)-r.limit:]
		}
	}
	r.pos = len(r.entries)
}

// back moves to the next older line.
func (r *recall) back() (string, bool) {
	if len(r.entries) == 0 {
		return "", false
	}
	if r.pos > 0 {
		r.pos--
	}
	return r.entries[r.pos], true
}

// forward moves to the next newer line. Moving past the newest ends
// browsing and reports false.
func (r *recall) forward() (string, bool) {
	if r.pos >= len(r.entries) {
		return "", false
	}
	r.pos++
	if r.pos == len(r.entries) {
		return "", false
	}
	return r.entries[r.pos], true
}

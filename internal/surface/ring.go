package surface

// scrollRing keeps the most recent completed lines. Sequence numbers keep
// growing as old entries fall off, so since-cursors stay valid.
type scrollRing struct {
	entries []Entry
	size    int
}

func newScrollRing(size int) *scrollRing {
	if size <= 0 {
		size = 2000
	}
	return &scrollRing{size: size}
}

func (r *scrollRing) append(e Entry) {
	r.entries = append(r.entries, e)
	if len(r.entries) > r.size {
		r.entries = r.entries[len(r.entries)-r.size:]
	}
}

func (r *scrollRing) since(seq uint64) []Entry {
	// Entries are in seq order; find the first one at or past the cursor.
	lo, hi := 0, len(r.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if r.entries[mid].Seq < seq {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	out := make([]Entry, len(r.entries)-lo)
	copy(out, r.entries[lo:])
	return out
}

func (r *scrollRing) last() (Entry, bool) {
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[len(r.entries)-1], true
}

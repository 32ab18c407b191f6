package store

// Observer is notified after each committed mutation of a collection.
//
// Records passed to the callbacks are clones; observers may keep them.
// Callbacks run with the store lock released.
type Observer interface {
	OnAppend(collection string, row Record)
	OnUpdate(collection string, prev, curr Record)
	OnDelete(collection string, row Record)
}

// change is one pending observer notification.
type change struct {
	collection string
	prev, curr Record
}

func (c *change) notify(o Observer) {
	switch {
	case c.prev == nil:
		o.OnAppend(c.collection, c.curr.Clone())
	case c.curr == nil:
		o.OnDelete(c.collection, c.prev.Clone())
	default:
		o.OnUpdate(c.collection, c.prev.Clone(), c.curr.Clone())
	}
}

// diff computes the changes between two versions of a collection, keyed by id.
//
// String and numeric ids are both tracked; rows without an id are not reported.
func diff(collection string, before, after []Record) []change {
	prevByID := make(map[string]Record, len(before))
	for _, r := range before {
		if k, ok := IDKey(r[FieldID]); ok {
			prevByID[k] = r
		}
	}
	var out []change
	seen := make(map[string]bool, len(after))
	for _, r := range after {
		k, ok := IDKey(r[FieldID])
		if !ok {
			continue
		}
		seen[k] = true
		prev, ok := prevByID[k]
		if !ok {
			out = append(out, change{collection: collection, curr: r})
			continue
		}
		if !sameRecord(prev, r) {
			out = append(out, change{collection: collection, prev: prev, curr: r})
		}
	}
	for _, r := range before {
		if k, ok := IDKey(r[FieldID]); ok && !seen[k] {
			out = append(out, change{collection: collection, prev: r})
		}
	}
	return out
}

func sameRecord(a, b Record) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !EqualValues(va, vb) {
			return false
		}
	}
	return true
}

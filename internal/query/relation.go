// Resolves projections and relation embeds on result rows.

package query

import "github.com/maruel/portalemu/internal/store"

// lookupFunc returns a snapshot of a collection by name.
type lookupFunc func(name string) []store.Record

// resolver shapes rows according to a projection, caching related
// collections for the duration of one execution.
type resolver struct {
	lookup  lookupFunc
	indexes map[string]map[string]store.Record
}

func newResolver(lookup lookupFunc) *resolver {
	return &resolver{lookup: lookup, indexes: make(map[string]map[string]store.Record)}
}

// shapeAll projects every row.
func (rv *resolver) shapeAll(rows []store.Record, p *projection) []store.Record {
	out := make([]store.Record, len(rows))
	for i, r := range rows {
		out[i] = rv.shape(r, p)
	}
	return out
}

// shape projects one row and attaches its embeds.
//
// Requested columns absent from the row are omitted. An embed whose related
// row cannot be found is omitted too, rather than set to nil.
func (rv *resolver) shape(r store.Record, p *projection) store.Record {
	var out store.Record
	if p.all {
		out = r.Clone()
	} else {
		out = make(store.Record, len(p.columns)+len(p.embeds))
	}
	for _, c := range p.columns {
		if v, ok := r[c.field]; ok {
			out[c.alias] = store.Normalize(v)
		}
	}
	for i := range p.embeds {
		e := &p.embeds[i]
		related, ok := rv.related(e.table, r[e.foreignKey])
		if !ok {
			continue
		}
		out[e.alias] = map[string]any(rv.shape(related, e.sub))
	}
	return out
}

// related finds the row of table whose id equals key.
func (rv *resolver) related(table string, key any) (store.Record, bool) {
	k, ok := store.IDKey(key)
	if !ok || rv.lookup == nil {
		return nil, false
	}
	idx, ok := rv.indexes[table]
	if !ok {
		rows := rv.lookup(table)
		idx = make(map[string]store.Record, len(rows))
		for _, row := range rows {
			if rk, ok := store.IDKey(row[store.FieldID]); ok {
				if _, dup := idx[rk]; !dup {
					idx[rk] = row
				}
			}
		}
		rv.indexes[table] = idx
	}
	row, ok := idx[k]
	return row, ok
}

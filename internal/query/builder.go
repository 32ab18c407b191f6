package query

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/maruel/portalemu/internal/store"
)

// Source is the collection store a builder reads from and writes to.
//
// *store.Store implements it.
type Source interface {
	Get(name string) []store.Record
	Modify(name string, fn func(rows []store.Record) ([]store.Record, error)) error
	Now() string
	NewID(taken func(id string) bool) string
}

// CountMode selects how the total matching count is reported.
type CountMode string

// CountExact reports the number of rows matching the filters, before range
// and limit.
const CountExact CountMode = "exact"

// SelectOptions are the optional arguments of [Builder.Select].
type SelectOptions struct {
	Count CountMode
	// Head drops the data and returns only the count.
	Head bool
}

// OrderOptions are the optional arguments of [Builder.Order].
type OrderOptions struct {
	Ascending bool
}

type mutation int

const (
	mutNone mutation = iota
	mutInsert
	mutUpdate
	mutDelete
)

// Builder accumulates a query against one collection.
//
// Chain methods mutate the builder and return it. The store is only touched
// by a terminal call. A builder must not be shared between goroutines while
// it is being built.
type Builder struct {
	src        Source
	tracer     Tracer
	collection string

	columns  string
	selected bool
	count    CountMode
	head     bool

	filters []Predicate

	orderField string
	orderAsc   bool
	hasOrder   bool

	limit    int
	hasLimit bool

	rangeFrom, rangeTo int
	hasRange           bool

	single bool

	mutation mutation
	payload  []store.Record
	patch    store.Record

	consumed atomic.Bool
}

// From returns a builder for the named collection.
func From(src Source, collection string) *Builder {
	return NewBuilder(src, collection, nil)
}

// NewBuilder returns a builder for the named collection that reports its
// execution to tracer, which may be nil.
func NewBuilder(src Source, collection string, tracer Tracer) *Builder {
	return &Builder{src: src, tracer: tracer, collection: collection}
}

// Collection returns the collection name the builder targets.
func (b *Builder) Collection() string {
	return b.collection
}

// Select records the projection and count options.
//
// columns uses the "a, b, alias:table(c, d)" syntax; "*" or "" selects all
// fields. On a mutation, Select shapes the returned rows.
func (b *Builder) Select(columns string, opts ...SelectOptions) *Builder {
	b.columns = columns
	b.selected = true
	for _, o := range opts {
		b.count = o.Count
		b.head = o.Head
	}
	return b
}

func (b *Builder) where(p Predicate) *Builder {
	if p != nil {
		b.filters = append(b.filters, p)
	}
	return b
}

// Eq filters on field == value.
func (b *Builder) Eq(field string, value any) *Builder { return b.where(Eq(field, value)) }

// Neq filters on field != value.
func (b *Builder) Neq(field string, value any) *Builder { return b.where(Neq(field, value)) }

// In filters on field being one of values.
func (b *Builder) In(field string, values any) *Builder { return b.where(In(field, values)) }

// Is filters on identity, typically Is(field, nil).
func (b *Builder) Is(field string, value any) *Builder { return b.where(Is(field, value)) }

// Not negates an operator; only "is" is supported, others are ignored.
func (b *Builder) Not(field, op string, value any) *Builder { return b.where(Not(field, op, value)) }

// Or adds one predicate matching any "field.eq.value" clause of expr.
func (b *Builder) Or(expr string) *Builder { return b.where(Or(expr)) }

// Ilike filters on a case-insensitive '%' pattern.
func (b *Builder) Ilike(field, pattern string) *Builder { return b.where(Ilike(field, pattern)) }

// Like filters on a case-sensitive '%' pattern.
func (b *Builder) Like(field, pattern string) *Builder { return b.where(Like(field, pattern)) }

// Gte filters on field >= value.
func (b *Builder) Gte(field string, value any) *Builder { return b.where(Gte(field, value)) }

// Lte filters on field <= value.
func (b *Builder) Lte(field string, value any) *Builder { return b.where(Lte(field, value)) }

// Gt filters on field > value.
func (b *Builder) Gt(field string, value any) *Builder { return b.where(Gt(field, value)) }

// Lt filters on field < value.
func (b *Builder) Lt(field string, value any) *Builder { return b.where(Lt(field, value)) }

// Filter adds an arbitrary predicate.
func (b *Builder) Filter(p Predicate) *Builder { return b.where(p) }

// Order sorts by field, ascending unless opts says otherwise. The most recent
// call wins.
func (b *Builder) Order(field string, opts ...OrderOptions) *Builder {
	b.orderField = field
	b.orderAsc = true
	for _, o := range opts {
		b.orderAsc = o.Ascending
	}
	b.hasOrder = true
	return b
}

// Limit caps the number of returned rows.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	b.hasLimit = true
	return b
}

// Range keeps rows from..to inclusive, zero-based.
func (b *Builder) Range(from, to int) *Builder {
	b.rangeFrom, b.rangeTo = from, to
	b.hasRange = true
	return b
}

// Insert queues rows for insertion. Filters are ignored for inserts.
func (b *Builder) Insert(rows ...store.Record) *Builder {
	b.mutation = mutInsert
	b.payload = rows
	return b
}

// Upsert behaves like [Builder.Insert].
func (b *Builder) Upsert(rows ...store.Record) *Builder {
	return b.Insert(rows...)
}

// Update queues patch to be merged into every matching row.
func (b *Builder) Update(patch store.Record) *Builder {
	b.mutation = mutUpdate
	b.patch = patch
	return b
}

// Delete queues removal of every matching row.
func (b *Builder) Delete() *Builder {
	b.mutation = mutDelete
	return b
}

// Single executes the builder and returns only the first row, or nil data
// when nothing matched.
func (b *Builder) Single(ctx context.Context) (*Result, error) {
	b.single = true
	return b.Execute(ctx)
}

// MaybeSingle is identical to [Builder.Single].
func (b *Builder) MaybeSingle(ctx context.Context) (*Result, error) {
	return b.Single(ctx)
}

// Execute runs the accumulated pipeline once.
//
// It returns ErrBuilderConsumed if the builder already ran; the store is not
// touched in that case.
func (b *Builder) Execute(ctx context.Context) (*Result, error) {
	if !b.consumed.CompareAndSwap(false, true) {
		return nil, ErrBuilderConsumed
	}
	start := time.Now()
	p := b.plan()
	var res *Result
	var e Execution
	var err error
	switch b.mutation {
	case mutInsert:
		res, e, err = runInsert(b.src, p, b.payload)
	case mutUpdate:
		res, e, err = runUpdate(b.src, p, b.patch)
	case mutDelete:
		res, e, err = runDelete(b.src, p)
	default:
		res, e = runRead(b.src.Get(b.collection), p, b.src.Get)
	}
	if err != nil {
		return nil, err
	}
	e.Duration = time.Since(start)
	slog.DebugContext(ctx, "query executed", "collection", e.Collection, "op", e.Op, "matched", e.Matched, "returned", e.Returned, "dur", e.Duration)
	if b.tracer != nil {
		b.tracer.OnExecute(ctx, e)
	}
	return res, nil
}

// plan snapshots the builder state into an immutable pipeline description.
func (b *Builder) plan() *plan {
	p := &plan{
		collection: b.collection,
		filter:     And(b.filters...),
		projection: parseProjection(b.columns),
		selected:   b.selected,
		count:      b.count,
		head:       b.head,
		single:     b.single,
		limit:      -1,
	}
	if b.hasOrder {
		p.order = &orderSpec{field: b.orderField, ascending: b.orderAsc}
	}
	if b.hasLimit {
		p.limit = max(b.limit, 0)
	}
	if b.hasRange {
		p.rng = &rangeSpec{from: b.rangeFrom, to: b.rangeTo}
	}
	return p
}

package query

import (
	"context"
	"time"
)

// Op is the kind of operation a builder executed.
type Op string

// Operations reported to a Tracer.
const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Execution describes one completed builder execution.
type Execution struct {
	Collection string
	Op         Op
	// Matched is the number of rows that satisfied the filters, or the number
	// of rows written for inserts.
	Matched int
	// Returned is the number of rows in Data.
	Returned int
	Duration time.Duration
}

// Tracer observes builder executions.
type Tracer interface {
	OnExecute(ctx context.Context, e Execution)
}

// Tracers fans out to several tracers.
type Tracers []Tracer

// OnExecute implements [Tracer].
func (ts Tracers) OnExecute(ctx context.Context, e Execution) {
	for _, t := range ts {
		if t != nil {
			t.OnExecute(ctx, e)
		}
	}
}

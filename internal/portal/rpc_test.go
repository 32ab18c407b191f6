package portal

import (
	"slices"
	"testing"

	"github.com/maruel/portalemu/internal/store"
)

func TestCountEnrollmentsByCoverage(t *testing.T) {
	c := newPortal(t)
	tests := map[string]int{"Dental": 3, "Medical": 3, "Vision": 2, "Life": 0}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			res := c.RPC(t.Context(), RPCCountEnrollmentsByCoverage, map[string]any{"coverage_name": name})
			if res.Error != nil || res.Data != want {
				t.Errorf("res = %+v, want %d", res, want)
			}
		})
	}
	t.Run("missing parameter", func(t *testing.T) {
		res := c.RPC(t.Context(), RPCCountEnrollmentsByCoverage, nil)
		if res.Error == nil {
			t.Error("expected envelope error")
		}
	})
}

func TestEnrollmentStatusCounts(t *testing.T) {
	c := newPortal(t)
	tests := []struct {
		name   string
		params map[string]any
		want   []StatusCount
	}{
		{
			"property",
			map[string]any{"property_id": "P1"},
			[]StatusCount{{"Enrolled", 1}, {"Pending", 1}, {"Premium Paying", 2}},
		},
		{
			"coverage",
			map[string]any{"property_id": "P1", "coverage_name": "Dental"},
			[]StatusCount{{"Pending", 1}, {"Premium Paying", 1}},
		},
		{
			"search name",
			map[string]any{"property_id": "P1", "search": "CHEN"},
			[]StatusCount{{"Pending", 1}},
		},
		{
			"search email",
			map[string]any{"property_id": "P2", "search": "noor@"},
			[]StatusCount{{"Waived", 1}},
		},
		{
			"no match",
			map[string]any{"property_id": "P9"},
			[]StatusCount{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.RPC(t.Context(), RPCEnrollmentStatusCounts, tt.params)
			got, ok := res.Data.([]StatusCount)
			if res.Error != nil || !ok || !slices.Equal(got, tt.want) {
				t.Errorf("res = %+v, want %v", res, tt.want)
			}
		})
	}
	t.Run("unknown parameter", func(t *testing.T) {
		res := c.RPC(t.Context(), RPCEnrollmentStatusCounts, map[string]any{"property_id": "P1", "bogus": 1})
		if res.Error == nil {
			t.Error("expected envelope error")
		}
	})
}

func TestPropertyStats(t *testing.T) {
	c := newPortal(t)
	if _, err := c.From(CollEnrollments).Insert(store.Record{"property_id": "P3", "status": StatusPremiumPaying}).Execute(t.Context()); err != nil {
		t.Fatal(err)
	}
	res := c.RPC(t.Context(), RPCPropertyStats, nil)
	got, ok := res.Data.([]PropertyStats)
	want := []PropertyStats{
		{"P2", "Elm Street Lofts", 3, 1, 42.5},
		{"P3", "Harbor View", 2, 2, 310},
		{"P1", "Oak Court Apartments", 4, 2, 352.5},
	}
	if res.Error != nil || !ok || !slices.Equal(got, want) {
		t.Errorf("res = %+v, want %v", res, want)
	}
}

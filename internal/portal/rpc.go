package portal

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"github.com/maruel/portalemu/internal/client"
	"github.com/maruel/portalemu/internal/query"
	"github.com/maruel/portalemu/internal/store"
)

// Procedure names.
const (
	RPCCountEnrollmentsByCoverage = "count_enrollments_by_coverage"
	RPCEnrollmentStatusCounts     = "get_enrollment_status_counts"
	RPCPropertyStats              = "get_property_stats"
)

// StatusCount is one row of get_enrollment_status_counts.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// PropertyStats is one row of get_property_stats.
type PropertyStats struct {
	PropertyID    string  `json:"property_id"`
	Name          string  `json:"name"`
	Total         int     `json:"total"`
	PremiumPaying int     `json:"premium_paying"`
	PremiumTotal  float64 `json:"premium_total"`
}

// RegisterProcedures installs the portal procedures on c.
func RegisterProcedures(c *client.Client) {
	c.Register(RPCCountEnrollmentsByCoverage, countEnrollmentsByCoverage)
	c.Register(RPCEnrollmentStatusCounts, enrollmentStatusCounts)
	c.Register(RPCPropertyStats, propertyStats)
}

type coverageParams struct {
	CoverageName string `mapstructure:"coverage_name"`
}

type statusParams struct {
	PropertyID   string `mapstructure:"property_id"`
	Search       string `mapstructure:"search"`
	CoverageName string `mapstructure:"coverage_name"`
}

func decodeParams(params map[string]any, v any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           v,
	})
	if err != nil {
		return err
	}
	if err := d.Decode(params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

func countEnrollmentsByCoverage(ctx context.Context, c *client.Client, params map[string]any) (any, error) {
	var p coverageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.CoverageName == "" {
		return nil, errors.New("coverage_name is required")
	}
	return count(ctx, c.From(CollEnrollments).Eq("coverage_name", p.CoverageName))
}

// enrollmentStatusCounts groups one property's enrollments by status. search
// matches the employee name or email, case-insensitively.
func enrollmentStatusCounts(ctx context.Context, c *client.Client, params map[string]any) (any, error) {
	var p statusParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.PropertyID == "" {
		return nil, errors.New("property_id is required")
	}
	b := c.From(CollEnrollments).Select("status").Eq("property_id", p.PropertyID)
	if p.CoverageName != "" {
		b = b.Eq("coverage_name", p.CoverageName)
	}
	if p.Search != "" {
		pat := "%" + p.Search + "%"
		byName, byEmail := query.Ilike("employee_name", pat), query.Ilike("email", pat)
		b = b.Filter(func(r store.Record) bool { return byName(r) || byEmail(r) })
	}
	res, err := b.Execute(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, r := range res.Rows() {
		counts[r.GetString("status")]++
	}
	out := make([]StatusCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, StatusCount{Status: s, Count: n})
	}
	slices.SortFunc(out, func(a, b StatusCount) int { return cmp.Compare(a.Status, b.Status) })
	return out, nil
}

func propertyStats(ctx context.Context, c *client.Client, params map[string]any) (any, error) {
	if err := decodeParams(params, &struct{}{}); err != nil {
		return nil, err
	}
	props, err := c.From(CollProperties).Select("id, name").Order("name").Execute(ctx)
	if err != nil {
		return nil, err
	}
	enr, err := c.From(CollEnrollments).Select("property_id, status, monthly_premium").Execute(ctx)
	if err != nil {
		return nil, err
	}
	type tally struct {
		total, paying int
		premium       float64
	}
	byProp := map[string]*tally{}
	for _, r := range enr.Rows() {
		id := r.GetString("property_id")
		t := byProp[id]
		if t == nil {
			t = &tally{}
			byProp[id] = t
		}
		t.total++
		if r.GetString("status") == StatusPremiumPaying {
			t.paying++
			t.premium += r.GetNumber("monthly_premium")
		}
	}
	out := make([]PropertyStats, 0, len(props.Rows()))
	for _, r := range props.Rows() {
		s := PropertyStats{PropertyID: r.ID(), Name: r.GetString("name")}
		if t := byProp[s.PropertyID]; t != nil {
			s.Total, s.PremiumPaying, s.PremiumTotal = t.total, t.paying, t.premium
		}
		out = append(out, s)
	}
	return out, nil
}

// Package portal is the benefits portal data layer: its seed fixtures, typed
// views of each collection and the RPC procedures the application calls.
package portal

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/maruel/portalemu/internal/client"
	"github.com/maruel/portalemu/internal/query"
	"github.com/maruel/portalemu/internal/store"
)

// Collection names.
const (
	CollProperties  = "properties"
	CollEnrollments = "enrollments"
	CollProfiles    = "profiles"
	CollDocuments   = "documents"
)

// StatusPremiumPaying is the enrollment status counted by property stats.
const StatusPremiumPaying = "Premium Paying"

//go:embed seed.yaml
var seedYAML []byte

// Seed returns the embedded demo fixtures.
func Seed() (*store.Fixtures, error) {
	f, err := store.ParseFixtures(seedYAML, store.FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded seed: %w", err)
	}
	return f, nil
}

// Property is a managed building.
type Property struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	ManagerID string    `json:"manager_id"`
	CreatedAt time.Time `json:"created_at"`
	Manager   *Profile  `json:"manager,omitempty"`
}

// Enrollment is one employee's benefit coverage at a property.
type Enrollment struct {
	ID             string    `json:"id"`
	PropertyID     string    `json:"property_id"`
	EmployeeName   string    `json:"employee_name"`
	Email          string    `json:"email"`
	CoverageName   string    `json:"coverage_name"`
	Status         string    `json:"status"`
	MonthlyPremium float64   `json:"monthly_premium"`
	EffectiveDate  string    `json:"effective_date"`
	Property       *Property `json:"property,omitempty"`
}

// Profile is a portal user.
type Profile struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Properties returns every property, by name, with its manager.
func Properties(ctx context.Context, c *client.Client) ([]Property, error) {
	res, err := c.From(CollProperties).
		Select("*, manager:profiles!manager_id(*)").
		Order("name").
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	var out []Property
	if err := res.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// EnrollmentsFor returns the enrollments of one property, by employee name.
func EnrollmentsFor(ctx context.Context, c *client.Client, propertyID string) ([]Enrollment, error) {
	res, err := c.From(CollEnrollments).
		Select("*, property:properties(id, name)").
		Eq("property_id", propertyID).
		Order("employee_name").
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	var out []Enrollment
	if err := res.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProfileByID returns the profile, or nil if there is none.
func ProfileByID(ctx context.Context, c *client.Client, id string) (*Profile, error) {
	res, err := c.From(CollProfiles).Select("*").Eq("id", id).MaybeSingle(ctx)
	if err != nil {
		return nil, err
	}
	if res.Data == nil {
		return nil, nil
	}
	p := &Profile{}
	if err := res.Decode(p); err != nil {
		return nil, err
	}
	return p, nil
}

// count runs b as a head count query.
func count(ctx context.Context, b *query.Builder) (int, error) {
	res, err := b.Select("*", query.SelectOptions{Count: query.CountExact, Head: true}).Execute(ctx)
	if err != nil {
		return 0, err
	}
	return res.Total(), nil
}

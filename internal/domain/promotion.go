package domain

import "time"

// Promotion is a discount offer with a priority, an optional active time
// window, and plan applicability. Created and edited by the admin surface;
// this engine only selects and tracks against it.
type Promotion struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Title           string     `json:"title" db:"title"`
	Active          bool       `json:"active" db:"active"`
	Priority        int        `json:"priority" db:"priority"`
	StartDate       *time.Time `json:"start_date" db:"start_date"`
	EndDate         *time.Time `json:"end_date" db:"end_date"`
	ApplicablePlans []string   `json:"applicable_plans" db:"applicable_plans"`
	DiscountType    string     `json:"discount_type" db:"discount_type"`
	DiscountValue   float64    `json:"discount_value" db:"discount_value"`

	Views       int     `json:"views" db:"views"`
	Conversions int     `json:"conversions" db:"conversions"`
	Revenue     float64 `json:"revenue" db:"revenue"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AppliesTo reports whether the promotion covers the given plan.
// An empty plan matches any promotion, and a promotion with no plan
// restriction covers every plan.
func (p *Promotion) AppliesTo(plan string) bool {
	if plan == "" || len(p.ApplicablePlans) == 0 {
		return true
	}
	for _, ap := range p.ApplicablePlans {
		if ap == plan {
			return true
		}
	}
	return false
}

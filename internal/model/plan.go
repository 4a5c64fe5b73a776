package model

import "strings"

// Tier is a subscription level controlling feature and data access.
type Tier string

const (
	TierFree         Tier = "free"
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// Tiers lists every tier from lowest to highest.
func Tiers() []Tier {
	return []Tier{TierFree, TierStarter, TierProfessional, TierEnterprise}
}

// ParseTier normalizes a tier string. Unknown or empty values map to TierFree.
func ParseTier(s string) Tier {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierStarter, TierProfessional, TierEnterprise:
		return t
	default:
		return TierFree
	}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierStarter, TierProfessional, TierEnterprise:
		return true
	}
	return false
}

// IsPaid reports whether t unlocks live data.
func (t Tier) IsPaid() bool {
	return t == TierStarter || t == TierProfessional || t == TierEnterprise
}

func (t Tier) String() string { return string(t) }

// Plan is the resolved subscription of the current session.
type Plan struct {
	Tier           Tier   `json:"plan" yaml:"plan"`
	OrganizationID string `json:"organization_id,omitempty" yaml:"organization_id,omitempty"`
}

// DefaultPlan is used while the session is unresolved and when resolution fails.
func DefaultPlan() Plan {
	return Plan{Tier: TierFree}
}

// UsesSampleData reports whether requests under p are served from fixtures.
func (p Plan) UsesSampleData() bool {
	return !p.Tier.IsPaid()
}

// Organization is the tenant record returned by an identity lookup.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Plan Tier   `json:"plan"`
}

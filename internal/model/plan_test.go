package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Tier
	}{
		{"free", TierFree},
		{"starter", TierStarter},
		{"Professional", TierProfessional},
		{"  ENTERPRISE ", TierEnterprise},
		{"", TierFree},
		{"platinum", TierFree},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseTier(tt.in))
		})
	}
}

func TestTier_IsPaid(t *testing.T) {
	t.Parallel()

	assert.False(t, TierFree.IsPaid())
	assert.True(t, TierStarter.IsPaid())
	assert.True(t, TierProfessional.IsPaid())
	assert.True(t, TierEnterprise.IsPaid())
	assert.False(t, Tier("").IsPaid())
}

func TestTier_Valid(t *testing.T) {
	t.Parallel()

	for _, tier := range Tiers() {
		assert.True(t, tier.Valid(), tier)
	}
	assert.False(t, Tier("gold").Valid())
}

func TestPlan_UsesSampleData(t *testing.T) {
	t.Parallel()

	assert.True(t, DefaultPlan().UsesSampleData())
	assert.True(t, Plan{Tier: TierFree, OrganizationID: "org-1"}.UsesSampleData())
	assert.False(t, Plan{Tier: TierStarter, OrganizationID: "org-1"}.UsesSampleData())
	assert.Empty(t, DefaultPlan().OrganizationID)
}

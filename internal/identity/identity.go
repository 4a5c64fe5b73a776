// Package identity resolves the organization and subscription plan of the
// current session.
package identity

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/muniops/internal/model"
	"github.com/sells-group/muniops/internal/store"
)

// Lookup returns the organization of the ambient session identity.
type Lookup interface {
	Lookup(ctx context.Context) (*model.Organization, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context) (*model.Organization, error)

// Lookup calls f.
func (f LookupFunc) Lookup(ctx context.Context) (*model.Organization, error) {
	return f(ctx)
}

// Static always returns the configured organization.
type Static struct {
	Org model.Organization
}

// NewStatic builds a Static lookup, normalizing the tier.
func NewStatic(orgID, plan string) *Static {
	return &Static{Org: model.Organization{ID: strings.TrimSpace(orgID), Plan: model.ParseTier(plan)}}
}

// Lookup returns a copy of the configured organization.
func (s *Static) Lookup(_ context.Context) (*model.Organization, error) {
	org := s.Org
	return &org, nil
}

// StoreLookup reads the user's organization from the record store's
// membership tables.
type StoreLookup struct {
	orgs   store.OrganizationStore
	userID string
}

// NewStoreLookup creates a StoreLookup for the given user.
func NewStoreLookup(orgs store.OrganizationStore, userID string) *StoreLookup {
	return &StoreLookup{orgs: orgs, userID: userID}
}

// Lookup returns the first organization the user belongs to.
func (l *StoreLookup) Lookup(ctx context.Context) (*model.Organization, error) {
	if strings.TrimSpace(l.userID) == "" {
		return nil, eris.New("identity: no user in session")
	}
	org, err := l.orgs.OrganizationForUser(ctx, l.userID)
	if err != nil {
		return nil, eris.Wrap(err, "identity: store lookup")
	}
	return org, nil
}

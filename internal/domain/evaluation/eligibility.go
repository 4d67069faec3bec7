package evaluation

import (
	"context"
	"errors"
	"sort"
)

// IdentityProvider answers whether a user is currently an active identity.
type IdentityProvider interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// EligibleSet separates confirmed eligible employees from those whose
// identity lookup failed. A complete empty set is a legitimate answer.
type EligibleSet struct {
	UserIDs    []string
	Unresolved []string
}

func (s EligibleSet) Complete() bool {
	return len(s.Unresolved) == 0
}

// effectiveEligible merges global and period entries. A period entry wins over
// the global one for the same user, so an inactive period entry excludes a
// globally eligible user.
func effectiveEligible(entries []EligibleUser) []string {
	global := map[string]bool{}
	scoped := map[string]bool{}
	for _, entry := range entries {
		if entry.PeriodID == nil {
			global[entry.UserID] = entry.Active
			continue
		}
		scoped[entry.UserID] = entry.Active
	}

	var ids []string
	for id, active := range scoped {
		if active {
			ids = append(ids, id)
		}
	}
	for id, active := range global {
		if _, overridden := scoped[id]; overridden || !active {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveEligible returns the employees that should receive an evaluation in
// the period. Lookup failures are reported in Unresolved together with an
// error matching ErrEligibilityIncomplete.
func (s *Service) ResolveEligible(ctx context.Context, periodID string) (EligibleSet, error) {
	entries, err := s.store.ListEligibleEntries(ctx, periodID)
	if err != nil {
		return EligibleSet{}, err
	}

	var (
		set   EligibleSet
		cause error
	)
	for _, id := range effectiveEligible(entries) {
		active, err := s.identity.IsActive(ctx, id)
		if err != nil {
			set.Unresolved = append(set.Unresolved, id)
			cause = errors.Join(cause, err)
			continue
		}
		if active {
			set.UserIDs = append(set.UserIDs, id)
		}
	}
	if !set.Complete() {
		return set, &EligibilityError{PeriodID: periodID, Unresolved: set.Unresolved, Cause: cause}
	}
	return set, nil
}

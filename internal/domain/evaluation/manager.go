package evaluation

import "context"

type MappingScope string

const (
	ScopePeriod MappingScope = "period"
	ScopeGlobal MappingScope = "global"
)

// ManagerResolution is the evaluator chosen for a collaborator. Found is false
// when no active mapping exists in either scope.
type ManagerResolution struct {
	ManagerID string       `json:"managerId,omitempty"`
	Scope     MappingScope `json:"scope,omitempty"`
	Found     bool         `json:"found"`
}

func resolveManager(periodID string, mappings []ManagerMapping) ManagerResolution {
	var global *ManagerMapping
	for i := range mappings {
		m := mappings[i]
		if !m.Active {
			continue
		}
		if m.PeriodID != nil && *m.PeriodID == periodID {
			return ManagerResolution{ManagerID: m.ManagerID, Scope: ScopePeriod, Found: true}
		}
		if m.PeriodID == nil && global == nil {
			global = &mappings[i]
		}
	}
	if global != nil {
		return ManagerResolution{ManagerID: global.ManagerID, Scope: ScopeGlobal, Found: true}
	}
	return ManagerResolution{}
}

// ResolveManager picks the evaluator for an employee in a period, preferring
// a period mapping over the global default.
func (s *Service) ResolveManager(ctx context.Context, employeeID, periodID string) (ManagerResolution, error) {
	mappings, err := s.store.ListManagerMappings(ctx, employeeID, periodID)
	if err != nil {
		return ManagerResolution{}, err
	}
	return resolveManager(periodID, mappings), nil
}

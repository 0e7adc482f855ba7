package accessgrants

import "time"

// Decision es el resultado de aplicar la política a los grants de un par/categoría.
type Decision struct {
	Any         bool
	Wildcard    bool
	ResourceIDs []string // ids de grants específicos, sin repetir; vacío si Wildcard
}

// Evaluate aplica default-deny y dominancia del wildcard sobre grants activos.
func Evaluate(grants []Grant, now time.Time) Decision {
	var d Decision
	seen := map[string]struct{}{}

	for _, g := range grants {
		if !g.Active(now) || !g.Consistent() {
			continue
		}
		d.Any = true
		if g.Scope == ScopeWildcard {
			d.Wildcard = true
			continue
		}
		id := *g.ResourceID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		d.ResourceIDs = append(d.ResourceIDs, id)
	}

	if d.Wildcard {
		d.ResourceIDs = nil
	}
	return d
}

// Allows responde si la decisión cubre resourceID ("" => cualquier registro de la categoría).
func (d Decision) Allows(resourceID string) bool {
	if !d.Any {
		return false
	}
	if resourceID == "" || d.Wildcard {
		return true
	}
	for _, id := range d.ResourceIDs {
		if id == resourceID {
			return true
		}
	}
	return false
}

package aspect

import "sort"

// Registry holds the known aspect definitions for a workspace. Lookups by the
// filter evaluator and scope validation go through it.
//
// Registry is not safe for concurrent mutation; build it once at startup from
// the definition files and treat it as read-only afterwards.
type Registry struct {
	defs map[Key]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[Key]Definition)}
}

// Register adds a definition. Registering the same key twice is rejected.
func (r *Registry) Register(d Definition) error {
	if _, exists := r.defs[d.Key]; exists {
		return &ValidationError{
			Code:    ErrCodeDuplicateDefinition,
			Message: "aspect is already defined",
			Key:     d.Key.String(),
		}
	}
	r.defs[d.Key] = d
	return nil
}

// Lookup returns the definition for key.
func (r *Registry) Lookup(key Key) (Definition, bool) {
	d, ok := r.defs[key]
	return d, ok
}

// Definitions returns all definitions sorted by key.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ValidateAll checks every aspect on a scope against its definition. Keys
// without a definition fail with ErrCodeUnknownKey. Definitions absent from
// the map are still checked so conditional Required rules can fire.
func (r *Registry) ValidateAll(aspects map[Key][]Value) error {
	for key, values := range aspects {
		def, ok := r.defs[key]
		if !ok {
			return &ValidationError{
				Code:    ErrCodeUnknownKey,
				Message: "no definition for aspect",
				Key:     key.String(),
			}
		}
		if err := def.Validate(values, without(aspects, key)); err != nil {
			return err
		}
	}

	for key, def := range r.defs {
		if _, present := aspects[key]; present {
			continue
		}
		if err := def.Validate(nil, aspects); err != nil {
			return err
		}
	}
	return nil
}

// without returns aspects minus the given key, for conditional rule
// evaluation against "the other aspects".
func without(aspects map[Key][]Value, key Key) map[Key][]Value {
	others := make(map[Key][]Value, len(aspects))
	for k, v := range aspects {
		if k != key {
			others[k] = v
		}
	}
	return others
}

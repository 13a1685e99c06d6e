package aspect

import "strings"

// Definition describes one aspect: its key, value type, multiplicity, and
// validation rules.
type Definition struct {
	Key           Key
	Type          Type
	Description   string
	AllowMultiple bool
	Rules         []Rule
}

// IsValidValue reports whether v belongs to the definition's value type.
func (d Definition) IsValidValue(v Value) bool {
	return typeCheck(d.Type, d.Key, v) == nil
}

// CheckValue validates v against the definition's value type, returning the
// typed failure.
func (d Definition) CheckValue(v Value) error {
	return typeCheck(d.Type, d.Key, v)
}

// CompareValues orders a against b under the definition's type. ok is false
// when the type has no defined order or either value is outside its domain.
func (d Definition) CompareValues(a, b Value) (cmp int, ok bool) {
	return compare(d.Type, a, b)
}

// Validate checks the given values for this aspect against its type and
// rules. values is the (possibly empty) list currently assigned; others holds
// the scope's remaining aspects for conditional rules.
//
// Single-valued definitions reject more than one value. Rules apply per
// element; Required is satisfied by the presence of at least one element.
func (d Definition) Validate(values []Value, others map[Key][]Value) error {
	if !d.AllowMultiple && len(values) > 1 {
		return &ValidationError{
			Code:    ErrCodeMultipleNotAllowed,
			Message: "aspect does not allow multiple values",
			Key:     d.Key.String(),
		}
	}

	for _, v := range values {
		if err := typeCheck(d.Type, d.Key, v); err != nil {
			return err
		}
	}

	if len(values) == 0 {
		// Absence: only Required can fire.
		for _, r := range d.Rules {
			if err := evaluateRule(r, d.Key, nil, others); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range d.Rules {
		for i := range values {
			if err := evaluateRule(r, d.Key, &values[i], others); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseEntry splits a raw "key:value" or "key=value" entry at the first
// occurring separator. Both sides are trimmed; empty sides are rejected.
func ParseEntry(s string) (Key, Value, error) {
	sep := -1
	for i, c := range s {
		if c == ':' || c == '=' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return "", "", &ValidationError{
			Code:    ErrCodeInvalidEntry,
			Message: "entry must be key:value or key=value",
			Value:   s,
		}
	}

	rawKey := strings.TrimSpace(s[:sep])
	rawValue := strings.TrimSpace(s[sep+1:])
	if rawKey == "" {
		return "", "", &ValidationError{Code: ErrCodeInvalidEntry, Message: "entry key is empty", Value: s}
	}
	if rawValue == "" {
		return "", "", &ValidationError{Code: ErrCodeInvalidEntry, Message: "entry value is empty", Value: s}
	}

	key, err := NewKey(rawKey)
	if err != nil {
		return "", "", err
	}
	value, err := NewValue(rawValue)
	if err != nil {
		return "", "", err
	}
	return key, value, nil
}

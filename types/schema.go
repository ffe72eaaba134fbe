package types

import "strings"

// Schema names the profile fields the registry relies on.
type Schema struct {
	// Required fields must be present as non-empty strings on submission.
	Required []string

	// Sensitive fields are kept while pending and stripped on approval.
	Sensitive []string
}

// DefaultSchema requires username and email and treats rawPassword as sensitive.
func DefaultSchema() Schema {
	return Schema{
		Required:  []string{FieldUsername, FieldEmail},
		Sensitive: []string{FieldRawPassword},
	}
}

// Missing returns the required fields the profile lacks.
func (s Schema) Missing(profile Profile) []string {
	var missing []string
	for _, field := range s.Required {
		value, ok := profile.String(field)
		if !ok || strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// Public returns a copy of profile without sensitive or bookkeeping fields.
func (s Schema) Public(profile Profile) Profile {
	without := make([]string, 0, len(s.Sensitive)+len(reservedFields))
	without = append(without, s.Sensitive...)
	without = append(without, reservedFields...)
	return profile.Clone(without...)
}

package domain

// FieldType enumerates the field kinds a connector config schema may use.
type FieldType string

const (
	// FieldText is a plain text field.
	FieldText FieldType = "text"
	// FieldSecret marks API keys, passwords, cookies - anything sensitive.
	FieldSecret FieldType = "secret"
	// FieldNumber is a numeric field, stored as its decimal string form.
	FieldNumber FieldType = "number"
	// FieldBoolean is a true/false field, stored as "true"/"false".
	FieldBoolean FieldType = "boolean"
	// FieldSelect restricts the value to one of Field.Options.
	FieldSelect FieldType = "select"
)

// Field describes one entry a connector wants in its AuthDetails.
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
	// Options holds the allowed values for select fields.
	Options []string `json:"options,omitempty"`
}

// ConfigSchema declares the AuthDetails a connector wants, in display order.
// It is immutable per connector.
type ConfigSchema struct {
	Fields []Field `json:"fields"`
}

package domain

// FieldType is the input widget a form field asks for.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldCheckbox FieldType = "checkbox"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldDate     FieldType = "date"
	FieldURL      FieldType = "url"
	FieldPassword FieldType = "password"
)

// IsFieldType reports whether t names a supported field type.
func IsFieldType(t string) bool {
	switch FieldType(t) {
	case FieldText, FieldTextarea, FieldEmail, FieldNumber, FieldCheckbox,
		FieldSelect, FieldRadio, FieldDate, FieldURL, FieldPassword:
		return true
	}
	return false
}

// FieldSpec describes one input of a form.
type FieldSpec struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Label    string    `json:"label,omitempty"`
	Required bool      `json:"required,omitempty"`
	Options  []string  `json:"options,omitempty"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
}

// FormDefinition is the ordered field list produced by a form block.
type FormDefinition struct {
	BlockID string      `json:"block_id"`
	Title   string      `json:"title,omitempty"`
	Fields  []FieldSpec `json:"fields"`
}

// Field looks up a field by name.
func (f FormDefinition) Field(name string) (FieldSpec, bool) {
	for _, fs := range f.Fields {
		if fs.Name == name {
			return fs, true
		}
	}
	return FieldSpec{}, false
}

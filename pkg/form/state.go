package form

import "github.com/goliatone/go-formflow/pkg/entity"

// Status is the uniqueness state of a field carrying a unique rule.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusChecking  Status = "checking"
	StatusAvailable Status = "available"
	StatusTaken     Status = "taken"
	StatusFailed    Status = "failed"
)

// ErrorSource tells where a field error came from.
type ErrorSource string

const (
	SourceNone       ErrorSource = ""
	SourceLocal      ErrorSource = "local"
	SourceUniqueness ErrorSource = "uniqueness"
	SourceTransport  ErrorSource = "transport"
	SourceStore      ErrorSource = "store"
)

// FieldState is the observable state of one form field. Error is empty
// exactly when the value satisfies every rule, including the latest resolved
// uniqueness result.
type FieldState struct {
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	Value       string      `json:"value"`
	Touched     bool        `json:"touched"`
	Dirty       bool        `json:"dirty"`
	Error       string      `json:"error,omitempty"`
	ErrorSource ErrorSource `json:"errorSource,omitempty"`
	Validating  bool        `json:"validating"`
	Unique      bool        `json:"unique"`
	Uniqueness  Status      `json:"uniqueness,omitempty"`
}

// State is a snapshot of the whole form, fields in declared order.
type State struct {
	Entity      entity.Type  `json:"entity"`
	Fields      []FieldState `json:"fields"`
	Submitting  bool         `json:"submitting"`
	SubmitError string       `json:"submitError,omitempty"`
	RecordID    string       `json:"recordId,omitempty"`
	// Version increases with every snapshot the controller takes.
	Version     uint64       `json:"version"`
}

// Field returns the named field state.
func (s State) Field(name string) (FieldState, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldState{}, false
}

// Values returns the current field values keyed by name.
func (s State) Values() map[string]string {
	out := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = f.Value
	}
	return out
}

// Errors returns the fields currently showing an error.
func (s State) Errors() map[string]string {
	out := map[string]string{}
	for _, f := range s.Fields {
		if f.Error != "" {
			out[f.Name] = f.Error
		}
	}
	return out
}

// Editing reports whether the form edits an existing record.
func (s State) Editing() bool { return s.RecordID != "" }

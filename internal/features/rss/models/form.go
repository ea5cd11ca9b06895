package models

import "maps"

// ProcessState tracks the submission form
type ProcessState string

const (
	ProcessStateNone     ProcessState = ""
	ProcessStateFilling  ProcessState = "filling"
	ProcessStateSending  ProcessState = "sending"
	ProcessStateFinished ProcessState = "finished"
	ProcessStateFailed   ProcessState = "failed"
)

// FieldURL is the name of the feed URL form field
const FieldURL = "url"

// Form holds the transient state of the subscription form
type Form struct {
	ProcessState ProcessState      `json:"processState"`
	ProcessError string            `json:"processError,omitempty"`
	Fields       map[string]string `json:"fields"`
	Valid        bool              `json:"valid"`
	Errors       map[string]string `json:"errors"`
}

// NewForm returns an empty form with the url field present
func NewForm() Form {
	return Form{
		Fields: map[string]string{FieldURL: ""},
		Errors: map[string]string{},
	}
}

// Clone returns a deep copy of f
func (f Form) Clone() Form {
	f.Fields = maps.Clone(f.Fields)
	f.Errors = maps.Clone(f.Errors)
	return f
}

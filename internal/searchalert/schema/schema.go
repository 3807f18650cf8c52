// Package schema validates raw alert payloads against embedded JSON Schemas
// before they are decoded into typed requests.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/smallbiznis/horecaalert/internal/searchalert/domain"
)

const createAlertURL = "https://horecaalert.local/schemas/search-alert/create.json"

//go:embed create_alert.schema.json
var createAlertSchema []byte

// Violation is one schema failure, addressed by JSON pointer.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a payload.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidPayload
}

type Validator struct {
	createAlert *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true
	if err := compiler.AddResource(createAlertURL, bytes.NewReader(createAlertSchema)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", createAlertURL, err)
	}
	createAlert, err := compiler.Compile(createAlertURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", createAlertURL, err)
	}
	return &Validator{createAlert: createAlert}, nil
}

// ValidateCreate checks a raw create payload.
func (v *Validator) ValidateCreate(raw []byte) error {
	return validate(v.createAlert, raw)
}

func validate(schema *jsonschema.Schema, raw []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return &ValidationError{Violations: []Violation{{Field: "/", Message: "malformed json"}}}
	}

	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	return &ValidationError{Violations: collectViolations(verr)}
}

func collectViolations(verr *jsonschema.ValidationError) []Violation {
	var out []Violation
	for _, item := range verr.BasicOutput().Errors {
		// Root entries only repeat "doesn't validate with ..." for the whole document.
		if item.InstanceLocation == "" && strings.HasPrefix(item.Error, "doesn't validate") {
			continue
		}
		field := item.InstanceLocation
		if field == "" {
			field = "/"
		}
		out = append(out, Violation{Field: field, Message: item.Error})
	}
	if len(out) == 0 {
		out = append(out, Violation{Field: "/", Message: verr.Message})
	}
	return out
}

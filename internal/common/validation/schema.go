// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"care-match-workers/internal/common/errors"
	"care-match-workers/pkg/registry"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaValidator checks job variables against the input schemas of the
// activity registry. Schemas are compiled once.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

func NewSchemaValidator(reg *registry.ActivityRegistry) (*SchemaValidator, error) {
	v := &SchemaValidator{schemas: make(map[string]*gojsonschema.Schema)}
	for _, activity := range reg.Activities {
		if len(activity.InputSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(activity.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compile input schema of %s: %w", activity.TaskType, err)
		}
		v.schemas[activity.TaskType] = schema
	}
	return v, nil
}

// ValidateInput returns an INPUT_VALIDATION_FAILED error listing every
// violation. Task types without a schema always pass.
func (v *SchemaValidator) ValidateInput(taskType string, variables map[string]interface{}) error {
	schema, ok := v.schemas[taskType]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(variables))
	if err != nil {
		return errors.NewInputValidationFailedError(fmt.Sprintf("validation error: %v", err))
	}
	if result.Valid() {
		return nil
	}
	return errors.NewInputValidationFailedError(strings.Join(describe(result), "; "))
}

// Validate checks a document against an ad-hoc schema.
func Validate(schema map[string]interface{}, document interface{}) ([]string, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	return describe(result), nil
}

func describe(result *gojsonschema.Result) []string {
	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return errs
}

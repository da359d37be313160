package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "machine.schema.json"

// Schema returns the JSON schema (draft 2020-12) of the Machine document.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Machine{})
	schema.Title = "OSL machine"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// ValidateDocument checks a YAML or JSON document against Schema without
// decoding it into a Machine.
func ValidateDocument(data []byte) error {
	raw, err := Schema()
	if err != nil {
		return err
	}

	compiler := jsv.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("invalid machine schema: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	// Round-trip through JSON so the validator sees JSON types only.
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to prepare document: %w", err)
	}
	var obj interface{}
	if err := json.Unmarshal(js, &obj); err != nil {
		return fmt.Errorf("failed to prepare document: %w", err)
	}

	if err := sch.Validate(obj); err != nil {
		var ve *jsv.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("document does not match schema: %s", ve.Error())
		}
		return err
	}
	return nil
}

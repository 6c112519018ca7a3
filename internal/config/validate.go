package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	schemafs "github.com/kamilpajak/trxreport/schema"
)

var (
	configSchema *jsonschema.Schema
	compileOnce  sync.Once
	compileErr   error
)

func compileSchema() error {
	compileOnce.Do(func() {
		data, err := schemafs.FS.ReadFile("config.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("read config schema: %w", err)
			return
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal config schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("config.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add config schema resource: %w", err)
			return
		}

		configSchema, err = compiler.Compile("config.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile config schema: %w", err)
		}
	})

	return compileErr
}

// ValidateSchema validates YAML config data against the embedded JSON schema.
// An empty document is valid.
func ValidateSchema(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	// Round-trip through JSON so the validator sees JSON types.
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not a plain mapping: %w", err)
	}
	var v any
	if err := json.Unmarshal(jsonData, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := configSchema.Validate(v); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Validate checks the final configuration after flags were applied.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Input) == "" {
		problems = append(problems, "input must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		problems = append(problems, "output directory must not be empty")
	}
	if c.ReportName == "" || filepath.Base(c.ReportName) != c.ReportName {
		problems = append(problems, fmt.Sprintf("report name %q must be a plain file name", c.ReportName))
	}
	if c.Screenshots.Enabled && strings.TrimSpace(c.Screenshots.Subdir) == "" {
		problems = append(problems, "screenshot subdir must not be empty")
	}

	if len(problems) > 0 {
		return &Error{Err: errors.New(strings.Join(problems, "; "))}
	}
	return nil
}

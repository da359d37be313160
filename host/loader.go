package host

import (
	"fmt"
	"os"
	"path/filepath"

	apptemplate "github.com/reglet-dev/acpica-osl/application/template"
	"github.com/reglet-dev/acpica-osl/domain/ports"
	"github.com/reglet-dev/acpica-osl/infrastructure/config"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	templateEngine  ports.TemplateEngine
	strictTemplates bool // Fail on missing template keys
	checkSchema     bool // Validate the rendered document against config.Schema
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		strictTemplates: true, // Secure default: fail on missing keys
		checkSchema:     true,
	}
}

// Loader orchestrates the machine description pipeline: render the
// template, check the document against the schema, then decode and
// validate it.
type Loader struct {
	config loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithTemplateEngine sets a template engine.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(c *loaderConfig) {
		c.templateEngine = t
	}
}

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), template rendering fails if a referenced key is missing.
// It has no effect when WithTemplateEngine supplies the engine.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// WithSchemaValidation enables/disables the JSON schema check that runs
// before decoding. Struct validation always runs.
func WithSchemaValidation(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.checkSchema = enabled
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.templateEngine == nil {
		cfg.templateEngine = apptemplate.NewRenderer(
			apptemplate.WithStrict(cfg.strictTemplates),
		)
	}

	return &Loader{config: cfg}
}

// LoadMachine renders, checks and parses a machine description. Relative
// file references in it resolve against the working directory.
func (l *Loader) LoadMachine(raw []byte, values map[string]interface{}) (*config.Machine, error) {
	return l.load(raw, values, ".")
}

// LoadMachineFile is LoadMachine for the document at path. Relative file
// references resolve against the document's directory.
func (l *Loader) LoadMachineFile(path string, values map[string]interface{}) (*config.Machine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine description: %w", err)
	}
	m, err := l.load(raw, values, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (l *Loader) load(raw []byte, values map[string]interface{}, dir string) (*config.Machine, error) {
	data, err := l.config.templateEngine.Render(raw, values)
	if err != nil {
		return nil, fmt.Errorf("failed to render machine description: %w", err)
	}

	if l.config.checkSchema {
		if err := config.ValidateDocument(data); err != nil {
			return nil, err
		}
	}

	return config.ParseIn(data, dir)
}

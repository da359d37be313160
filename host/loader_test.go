package host_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/reglet-dev/acpica-osl/host"
	"github.com/reglet-dev/acpica-osl/infrastructure/config"
)

// LoaderSuite runs machine descriptions through the full pipeline.
type LoaderSuite struct {
	suite.Suite
	loader *host.Loader
}

func (s *LoaderSuite) SetupTest() {
	s.loader = host.NewLoader()
}

func (s *LoaderSuite) TestPlainDocument() {
	doc := `
memory:
  physical_size: 0x100000
workers:
  count: 2
  queue_depth: 4
`
	m, err := s.loader.LoadMachine([]byte(doc), nil)
	s.Require().NoError(err)
	s.Equal(uint64(0x100000), m.Memory.PhysicalSize)
	s.Equal(2, m.Workers.Count)
	s.Equal("stderr", m.Console.Output)
}

func (s *LoaderSuite) TestTemplatedDocument() {
	doc := `
memory:
  physical_size: {{ hex .values.size }}
overrides:
  predefined:
    _OS_: "{{ .values.os }}"
  tables:
    {{ upper .values.table }}: tables/facp.bin
`
	m, err := s.loader.LoadMachine([]byte(doc), map[string]interface{}{
		"size":  0x200000,
		"os":    "Linux",
		"table": "facp",
	})
	s.Require().NoError(err)
	s.Equal(uint64(0x200000), m.Memory.PhysicalSize)
	s.Equal("Linux", m.Overrides.Predefined["_OS_"])
	_, ok := m.Overrides.Tables["FACP"]
	s.True(ok)
}

func (s *LoaderSuite) TestMissingValue() {
	doc := "memory:\n  physical_size: {{ .values.size }}\n"
	_, err := s.loader.LoadMachine([]byte(doc), map[string]interface{}{})
	s.Require().Error(err)
	s.Contains(err.Error(), "failed to render machine description")
}

func (s *LoaderSuite) TestSchemaMismatch() {
	doc := "ports:\n  - address: 0x80\n    width: 12\n"
	_, err := s.loader.LoadMachine([]byte(doc), nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "does not match schema")
}

func (s *LoaderSuite) TestInvalidYAML() {
	doc := "memory: [1, 2\n"
	_, err := s.loader.LoadMachine([]byte(doc), nil)
	s.Require().Error(err)
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderSuite))
}

func TestLoader_WithoutSchema(t *testing.T) {
	loader := host.NewLoader(host.WithSchemaValidation(false))

	_, err := loader.LoadMachine([]byte("ports:\n  - address: 0x80\n    width: 12\n"), nil)
	require.Error(t, err)

	var ve *config.ValidationError
	require.True(t, errors.As(err, &ve), "struct validation still runs: %v", err)
	assert.NotEmpty(t, ve.Fields)
}

func TestLoader_LenientTemplates(t *testing.T) {
	loader := host.NewLoader(host.WithStrictTemplates(false))

	// A missing key renders as "<no value>" inside the quoted string.
	m, err := loader.LoadMachine([]byte("overrides:\n  predefined:\n    _OS_: \"{{ .values.os }}\"\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "<no value>", m.Overrides.Predefined["_OS_"])
}

func TestLoader_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rsdp.bin"), []byte("RSD PTR "), 0o600))
	path := filepath.Join(dir, "machine.yaml")
	doc := `
memory:
  physical_size: 0x100000
  regions:
    - address: {{ hex .values.rsdp }}
      file: rsdp.bin
root_pointer: {{ hex .values.rsdp }}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	m, err := host.NewLoader().LoadMachineFile(path, map[string]interface{}{"rsdp": 0xe0000})
	require.NoError(t, err)
	assert.Equal(t, uint64(0xe0000), m.RootPointer)

	data, err := m.Memory.Regions[0].Bytes(m)
	require.NoError(t, err)
	assert.Equal(t, []byte("RSD PTR "), data)

	_, err = host.NewLoader().LoadMachineFile(filepath.Join(dir, "missing.yaml"), nil)
	require.Error(t, err)
}

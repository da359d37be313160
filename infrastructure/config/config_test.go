package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMachine = `
memory:
  physical_size: 0x200000
  max_allocation: 0x10000
  regions:
    - address: 0xe0000
      hex: "52534420505452"
root_pointer: 0xe0000
workers:
  count: 2
  queue_depth: 8
pci:
  - bus: 0
    device: 0x1f
    function: 3
    vendor_id: 0x8086
    device_id: 0x2930
ports:
  - address: 0x80
    value: 0x12
    width: 8
overrides:
  predefined:
    _OS_: "Microsoft Windows NT"
debug:
  interrupt_guard: true
log:
  level: debug
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleMachine))
	require.NoError(t, err)

	assert.Equal(t, uint64(0x200000), m.Memory.PhysicalSize)
	assert.Equal(t, uint64(0xe0000), m.RootPointer)
	assert.Equal(t, 2, m.Workers.Count)
	require.Len(t, m.PCI, 1)
	assert.Equal(t, uint16(0x8086), m.PCI[0].VendorID)
	assert.Equal(t, uint32(8), m.Ports[0].Width)
	assert.True(t, m.Debug.InterruptGuard)
	assert.Equal(t, "Microsoft Windows NT", m.Overrides.Predefined["_OS_"])

	// Unset keys keep their defaults.
	assert.Equal(t, "text", m.Log.Format)
	assert.Equal(t, "stderr", m.Console.Output)

	data, err := m.Memory.Regions[0].Bytes(m)
	require.NoError(t, err)
	assert.Equal(t, []byte("RSD PTR"), data)
}

func TestParse_Empty(t *testing.T) {
	m, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *m)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("memory:\n  physical_size: 4096\nbogus: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Machine)
		field  string
	}{
		{"tiny memory", func(m *Machine) { m.Memory.PhysicalSize = 16 }, "PhysicalSize"},
		{"no workers", func(m *Machine) { m.Workers.Count = 0 }, "Count"},
		{"bad log level", func(m *Machine) { m.Log.Level = "trace" }, "Level"},
		{"bad port width", func(m *Machine) { m.Ports = []Port{{Address: 0x80, Width: 64}} }, "Width"},
		{"port out of range", func(m *Machine) { m.Ports = []Port{{Address: 0x10000, Width: 8}} }, "Address"},
		{"pci without vendor", func(m *Machine) { m.PCI = []PCIDevice{{Device: 1}} }, "VendorID"},
		{"short table signature", func(m *Machine) { m.Overrides.Tables = map[string]string{"DSD": "dsdt.aml"} }, "Tables"},
		{"region with both sources", func(m *Machine) {
			m.Memory.Regions = []Region{{Address: 0x1000, Hex: "00", File: "x.bin"}}
		}, "Hex"},
		{"region with no source", func(m *Machine) { m.Memory.Regions = []Region{{Address: 0x1000}} }, "File"},
		{"region not hex", func(m *Machine) { m.Memory.Regions = []Region{{Address: 0x1000, Hex: "zz"}} }, "Hex"},
		{"region past memory", func(m *Machine) { m.Memory.Regions = []Region{{Address: 1 << 40, Hex: "00"}} }, "Regions[0].Address"},
		{"root pointer past memory", func(m *Machine) { m.RootPointer = 1 << 40 }, "RootPointer"},
		{"allocation past memory", func(m *Machine) { m.Memory.MaxAllocation = 1 << 40 }, "MaxAllocation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Default()
			tt.mutate(&m)

			err := m.Validate()
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_Default(t *testing.T) {
	m := Default()
	assert.NoError(t, m.Validate())
}

func TestLoad_ResolvesRelativeFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rsdp.bin"), []byte{1, 2, 3}, 0o600))
	doc := "memory:\n  physical_size: 0x100000\n  regions:\n    - address: 0xe0000\n      file: rsdp.bin\n" +
		"overrides:\n  tables:\n    DSDT: dsdt.aml\n"
	path := filepath.Join(dir, "machine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	m, err := Load(path)
	require.NoError(t, err)

	data, err := m.Memory.Regions[0].Bytes(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	file, ok := m.TableFile("DSDT")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "dsdt.aml"), file)

	_, ok = m.TableFile("SSDT")
	assert.False(t, ok)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"physical_size"`)
	assert.Contains(t, s, `"interrupt_guard"`)
	assert.Contains(t, s, `"queue_depth"`)
}

func TestValidateDocument(t *testing.T) {
	require.NoError(t, ValidateDocument([]byte(sampleMachine)))

	err := ValidateDocument([]byte("workers:\n  count: \"many\"\n"))
	require.Error(t, err)

	err = ValidateDocument([]byte("ports:\n  - address: 0x80\n    width: 12\n"))
	require.Error(t, err)

	err = ValidateDocument([]byte("unknown: true\n"))
	require.Error(t, err)
}

// Package config describes the simulated machine behind the hosted OS
// services: physical memory contents, worker pool, console, PCI devices,
// I/O ports and firmware overrides.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Machine is the root configuration document.
type Machine struct {
	Memory      Memory      `yaml:"memory,omitempty" json:"memory,omitempty" jsonschema:"description=Physical memory layout"`
	RootPointer uint64      `yaml:"root_pointer,omitempty" json:"root_pointer,omitempty" jsonschema:"description=Physical address of the RSDP; scanned for when zero"`
	Workers     Workers     `yaml:"workers,omitempty" json:"workers,omitempty"`
	Console     Console     `yaml:"console,omitempty" json:"console,omitempty"`
	PCI         []PCIDevice `yaml:"pci,omitempty" json:"pci,omitempty" validate:"dive"`
	Ports       []Port      `yaml:"ports,omitempty" json:"ports,omitempty" validate:"dive"`
	Overrides   Overrides   `yaml:"overrides,omitempty" json:"overrides,omitempty"`
	Debug       Debug       `yaml:"debug,omitempty" json:"debug,omitempty"`
	Log         Log         `yaml:"log,omitempty" json:"log,omitempty"`

	// baseDir resolves relative file references. Set by Load.
	baseDir string
}

// Memory sizes the physical arena and lists its initial contents.
type Memory struct {
	PhysicalSize  uint64   `yaml:"physical_size,omitempty" json:"physical_size,omitempty" validate:"required,min=4096,max=1073741824" jsonschema:"minimum=4096,maximum=1073741824"`
	MaxAllocation uint64   `yaml:"max_allocation,omitempty" json:"max_allocation,omitempty" validate:"omitempty,min=1"`
	Regions       []Region `yaml:"regions,omitempty" json:"regions,omitempty" validate:"dive"`
}

// Region preloads physical memory at Address from either hex text or a file.
type Region struct {
	Address uint64 `yaml:"address" json:"address"`
	Hex     string `yaml:"hex,omitempty" json:"hex,omitempty" validate:"required_without=File,excluded_with=File"`
	File    string `yaml:"file,omitempty" json:"file,omitempty" validate:"required_without=Hex"`
}

// Workers sizes the pool that runs deferred procedure calls.
type Workers struct {
	Count      int `yaml:"count,omitempty" json:"count,omitempty" validate:"min=1,max=64" jsonschema:"minimum=1,maximum=64"`
	QueueDepth int `yaml:"queue_depth,omitempty" json:"queue_depth,omitempty" validate:"min=1" jsonschema:"minimum=1"`
}

// Console configures interpreter diagnostic output.
type Console struct {
	Buffer int    `yaml:"buffer,omitempty" json:"buffer,omitempty" validate:"min=1" jsonschema:"minimum=1"`
	Output string `yaml:"output,omitempty" json:"output,omitempty" validate:"oneof=stdout stderr discard" jsonschema:"enum=stdout,enum=stderr,enum=discard"`
}

// PCIDevice creates a configuration space for one PCI function.
type PCIDevice struct {
	Segment  uint16 `yaml:"segment,omitempty" json:"segment,omitempty"`
	Bus      uint16 `yaml:"bus,omitempty" json:"bus,omitempty" validate:"max=255"`
	Device   uint16 `yaml:"device,omitempty" json:"device,omitempty" validate:"max=31"`
	Function uint16 `yaml:"function,omitempty" json:"function,omitempty" validate:"max=7"`
	VendorID uint16 `yaml:"vendor_id" json:"vendor_id" validate:"required"`
	DeviceID uint16 `yaml:"device_id" json:"device_id"`
}

// Port presets the value of an I/O port.
type Port struct {
	Address uint64 `yaml:"address" json:"address" validate:"max=65535"`
	Value   uint32 `yaml:"value,omitempty" json:"value,omitempty"`
	Width   uint32 `yaml:"width" json:"width" validate:"oneof=8 16 32" jsonschema:"enum=8,enum=16,enum=32"`
}

// Overrides replace firmware-provided objects and tables.
type Overrides struct {
	Predefined map[string]string `yaml:"predefined,omitempty" json:"predefined,omitempty" validate:"dive,keys,required,endkeys"`
	Tables     map[string]string `yaml:"tables,omitempty" json:"tables,omitempty" validate:"dive,keys,len=4,endkeys,required"`
}

// Debug toggles development checks.
type Debug struct {
	InterruptGuard bool `yaml:"interrupt_guard,omitempty" json:"interrupt_guard,omitempty"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `yaml:"format,omitempty" json:"format,omitempty" validate:"oneof=text json" jsonschema:"enum=text,enum=json"`
}

// Default returns a small machine with no preloaded memory.
func Default() Machine {
	return Machine{
		Memory: Memory{
			PhysicalSize:  16 << 20,
			MaxAllocation: 1 << 20,
		},
		Workers: Workers{Count: 4, QueueDepth: 64},
		Console: Console{Buffer: 256, Output: "stderr"},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// BaseDir returns the directory relative file references resolve against.
func (m *Machine) BaseDir() string {
	return m.baseDir
}

// ResolvePath makes a file reference from the document absolute.
func (m *Machine) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || m.baseDir == "" {
		return p
	}
	return filepath.Join(m.baseDir, p)
}

// Bytes returns the region contents.
func (r Region) Bytes(m *Machine) ([]byte, error) {
	if r.File != "" {
		data, err := os.ReadFile(m.ResolvePath(r.File))
		if err != nil {
			return nil, fmt.Errorf("region at %#x: %w", r.Address, err)
		}
		return data, nil
	}
	data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(r.Hex, "0x"), "0X"))
	if err != nil {
		return nil, fmt.Errorf("region at %#x: %w", r.Address, err)
	}
	return data, nil
}

// TableFile returns the replacement file for a table signature, if any.
func (m *Machine) TableFile(signature string) (string, bool) {
	p, ok := m.Overrides.Tables[signature]
	if !ok {
		return "", false
	}
	return m.ResolvePath(p), true
}

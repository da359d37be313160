package host

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	oslwazero "github.com/reglet-dev/acpica-osl/infrastructure/wazero"
)

// required lists the exports an interpreter module must provide, with their
// parameter and result counts.
var required = map[string][2]int{
	oslwazero.AllocateExport:   {1, 1},
	oslwazero.DeallocateExport: {2, 0},
	oslwazero.CallbackExport:   {2, 1},
}

// checkInterpreter rejects modules missing the guest ABI or importing
// host functions the OS services module does not provide.
func checkInterpreter(compiled wazero.CompiledModule, hostModule string) error {
	var problems []string

	exported := compiled.ExportedFunctions()
	for name, shape := range required {
		def, ok := exported[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing export %q", name))
			continue
		}
		if len(def.ParamTypes()) != shape[0] || len(def.ResultTypes()) != shape[1] {
			problems = append(problems, fmt.Sprintf("export %q has %d params and %d results, want %d and %d",
				name, len(def.ParamTypes()), len(def.ResultTypes()), shape[0], shape[1]))
		}
	}

	known := make(map[string]bool)
	for _, name := range oslwazero.ExportNames() {
		known[name] = true
	}
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		if module == hostModule && !known[name] {
			problems = append(problems, fmt.Sprintf("unknown import %s.%s", module, name))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("not an interpreter module: %s", strings.Join(problems, "; "))
}

// CallWithBytes copies input into guest memory and invokes export with its
// pointer and length followed by params. The copy is released afterwards.
func (i *Interpreter) CallWithBytes(ctx context.Context, export string, input []byte, params ...uint64) ([]uint64, error) {
	if len(input) == 0 {
		return i.Call(ctx, export, append([]uint64{0, 0}, params...)...)
	}

	allocate := i.module.ExportedFunction(oslwazero.AllocateExport)
	resAlloc, err := allocate.Call(ctx, uint64(len(input)))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate in guest: %w", err)
	}
	if len(resAlloc) == 0 || resAlloc[0] == 0 {
		return nil, fmt.Errorf("allocate returned no memory")
	}
	ptr := api.DecodeU32(resAlloc[0])
	defer func() {
		_, _ = i.module.ExportedFunction(oslwazero.DeallocateExport).Call(ctx, uint64(ptr), uint64(len(input)))
	}()

	if !i.module.Memory().Write(ptr, input) {
		return nil, fmt.Errorf("failed to write input to guest memory")
	}
	return i.Call(ctx, export, append([]uint64{uint64(ptr), uint64(len(input))}, params...)...)
}

// ReadPacked copies the guest buffer described by a packed ptr+len.
func (i *Interpreter) ReadPacked(packed uint64) ([]byte, error) {
	ptr := uint32(packed >> 32)
	length := uint32(packed)
	if ptr == 0 || length == 0 {
		return nil, fmt.Errorf("null buffer from interpreter")
	}
	data, ok := i.module.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("failed to read buffer from memory")
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

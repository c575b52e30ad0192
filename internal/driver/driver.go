// Package driver orchestrates the full L→T→M→C→R pipeline behind a
// single `compile(module_path, dependency_paths)` entry point: manifest
// resolution, a linear pipeline call, then writing output, backed by
// on-disk memoization keyed on module content digests.
package driver

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rather-labs/move-stylus-poc/internal/abi"
	"github.com/rather-labs/move-stylus-poc/internal/codegen"
	"github.com/rather-labs/move-stylus-poc/internal/diag"
	"github.com/rather-labs/move-stylus-poc/internal/layout"
	"github.com/rather-labs/move-stylus-poc/internal/mono"
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/project"
	"github.com/rather-labs/move-stylus-poc/internal/router"
	"github.com/rather-labs/move-stylus-poc/internal/runtime"
	"github.com/rather-labs/move-stylus-poc/internal/types"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
	"github.com/rather-labs/move-stylus-poc/internal/wasmir"
)

// Result is what Compile hands back: the assembled WASM binary plus
// the selector table the router dispatches on, which the compile cache
// stores alongside the binary.
type Result struct {
	Wasm      []byte
	Selectors []SelectorEntry
}

// SelectorEntry names one entry function alongside the 4-byte selector
// buildEntryTable derived for it, in the same lexicographic order the
// router's dispatch table uses.
type SelectorEntry struct {
	Name      string
	Signature string
	Selector  [4]byte
}

// Driver ties the pipeline stages together and, optionally, memoizes
// compiled output on disk keyed by content digest.
type Driver struct {
	Cache    *DiskCache
	Reporter diag.Reporter
}

// New constructs a Driver. cache may be nil (every Compile call then
// always runs the full pipeline); reporter may be nil (diagnostics are
// discarded, matching diag.NopReporter's contract).
func New(cache *DiskCache, reporter diag.Reporter) *Driver {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	return &Driver{Cache: cache, Reporter: reporter}
}

// Compile runs the full pipeline over modulePath plus its
// depPaths-resolved dependency search directories and returns the
// assembled Stylus-targeted WASM module.
func (d *Driver) Compile(modulePath string, depPaths []string) (*Result, error) {
	rootBytes, depFiles, err := readModuleAndDeps(modulePath, depPaths)
	if err != nil {
		return nil, err
	}

	digest := Combine(rootBytes, digestsOf(depFiles)...)
	if d.Cache != nil {
		if payload, ok, err := d.Cache.Get(digest); err == nil && ok {
			return &Result{Wasm: payload.Wasm, Selectors: payload.Selectors}, nil
		}
	}

	prog, err := loadTransitiveClosure(modulePath, rootBytes, depFiles)
	if err != nil {
		return nil, err
	}

	result, err := compileProgram(prog, d.Reporter)
	if err != nil {
		return nil, err
	}

	if d.Cache != nil {
		_ = d.Cache.Put(digest, &Payload{Wasm: result.Wasm, Selectors: result.Selectors})
	}
	return result, nil
}

// LoadProgram runs only the loader (L) stage: modulePath plus every
// *.mv file under depPaths, linked into one *mvbc.Program. `movewasm
// inspect` and `movewasm selectors` both stop here — neither needs
// monomorphization or codegen to answer what they answer.
func LoadProgram(modulePath string, depPaths []string) (*mvbc.Program, error) {
	rootBytes, depFiles, err := readModuleAndDeps(modulePath, depPaths)
	if err != nil {
		return nil, err
	}
	return loadTransitiveClosure(modulePath, rootBytes, depFiles)
}

func readModuleAndDeps(modulePath string, depPaths []string) ([]byte, []readFile, error) {
	rootBytes, err := os.ReadFile(modulePath)
	if err != nil {
		return nil, nil, fmt.Errorf("driver: reading %q: %w", modulePath, err)
	}
	depPathFiles, err := project.DiscoverBytecodeFiles(depPaths)
	if err != nil {
		return nil, nil, err
	}
	depFiles, err := readFilesParallel(depPathFiles)
	if err != nil {
		return nil, nil, err
	}
	return rootBytes, depFiles, nil
}

func digestsOf(files []readFile) []Digest {
	out := make([]Digest, len(files))
	for i, f := range files {
		out[i] = f.digest
	}
	return out
}

// compileProgram runs T, M, C, R over an already-loaded Program and
// assembles the final wasmenc.Module.
func compileProgram(prog *mvbc.Program, reporter diag.Reporter) (*Result, error) {
	root := prog.ModuleByID(prog.Root)
	if root == nil {
		return nil, fmt.Errorf("driver: program has no root module")
	}

	entryIDs, initPos := entryPoints(prog, root)
	moResult, err := mono.New(prog).Run(entryIDs)
	if err != nil {
		return nil, err
	}

	checkUnusedOTW(prog, root, reporter)

	le := layout.New(layout.Wasm32Stylus(), prog.Types)
	env := newModuleEnv()

	registerHostImports(env)
	registerReadArgsHelper(env)
	registerRuntimeFunctions(env)
	if err := registerCompiledFunctions(env, le, prog, moResult.Functions); err != nil {
		return nil, err
	}

	buildRuntimeBodies(env)
	buildReadArgsHelperBody(env)
	if err := buildCompiledBodies(env, le, prog, moResult.Functions); err != nil {
		return nil, err
	}

	entries, selectors, err := buildEntryTable(env, le, prog, root, reporter)
	if err != nil {
		return nil, err
	}

	entrypointType := wasmenc.FuncType{Params: []wasmenc.ValType{wasmenc.I32}, Results: []wasmenc.ValType{wasmenc.I32}}
	env.reserveDefined("user_entrypoint", entrypointType)
	env.setBody("user_entrypoint", router.BuildEntrypoint(env, entries))

	mod := &wasmenc.Module{
		Types:     env.types,
		Imports:   env.imports,
		Functions: env.functions,
		Memories:  []wasmenc.Limits{{Min: 1}},
		Globals: []wasmenc.Global{
			{Type: wasmenc.I32, Mutable: true, Init: constExprI32(int32(alignUp8(env.dataCursor)))},
			{Type: wasmenc.I32, Mutable: true, Init: constExprI32(0)}, // runtime's object counter
		},
		Exports: []wasmenc.Export{
			{Name: "memory", Kind: wasmenc.ExportMemory, Index: 0},
			{Name: "user_entrypoint", Kind: wasmenc.ExportFunc, Index: env.FuncIndex("user_entrypoint")},
		},
		Code: env.code,
		// The runtime's object-owner field tag lives at the fixed
		// address 8 (runtime.ownerTagPtr).
		Data: append(env.data, wasmenc.Data{Offset: constExprI32(8), Init: []byte("owner")}),
	}
	if initPos >= 0 {
		initInstance := moResult.EntryPoints[initPos]
		mod.Exports = append(mod.Exports, wasmenc.Export{
			Name:  "init",
			Kind:  wasmenc.ExportFunc,
			Index: env.FuncIndex(codegen.FuncSymbol(prog, initInstance)),
		})
	}

	if err := wasmenc.ValidateModule(mod); err != nil {
		return nil, err
	}

	return &Result{Wasm: mod.Encode(), Selectors: selectors}, nil
}

// entryPoints collects the entry set: every public
// function of the root module, plus its constructor if the loader
// accepted one shape (module.Init is only ever set in that case).
// Private/friend functions are never roots themselves — monomorphization
// pulls them in transitively when a public function or init calls them.
// initPos is entryIDs' index for root.Init, or -1 if there is none.
func entryPoints(prog *mvbc.Program, root *mvbc.Module) (entryIDs []mvbc.FunctionID, initPos int) {
	initPos = -1
	for _, fid := range root.Funcs {
		if fn := prog.FunctionByID(fid); fn != nil && fn.Visibility == mvbc.VisibilityPublic {
			entryIDs = append(entryIDs, fid)
		}
	}
	if root.Init.IsValid() {
		for _, fid := range entryIDs {
			if fid == root.Init {
				return entryIDs, -1
			}
		}
		initPos = len(entryIDs)
		entryIDs = append(entryIDs, root.Init)
	}
	return entryIDs, initPos
}

// checkUnusedOTW resolves root's declared init (if any) and any
// zero-field candidate structs into router's constructor classification,
// then reports RouterOTWUnused when a one-time-witness struct exists
// but init never consumes it.
func checkUnusedOTW(prog *mvbc.Program, root *mvbc.Module, reporter diag.Reporter) {
	moduleNameUpper := strings.ToUpper(prog.Strings.MustLookup(root.Name))

	hasOTWStruct := false
	for _, sid := range root.Structs {
		sd := prog.StructByID(sid)
		if sd == nil || sd.TypeParams != 0 {
			continue
		}
		if router.IsOTWShape(prog.Types, prog.Strings, moduleNameUpper, sd.TypeID) {
			hasOTWStruct = true
			break
		}
	}

	kind := router.NoConstructor
	if root.Init.IsValid() {
		if initFn := prog.FunctionByID(root.Init); initFn != nil {
			paramTypes := make([]types.TypeID, len(initFn.Params))
			for i, p := range initFn.Params {
				paramTypes[i] = p.Type
			}
			kind, _ = router.ClassifyInit(prog.Types, prog.Strings, moduleNameUpper, paramTypes)
		}
	}

	router.CheckUnusedOTW(reporter, diag.Location{Module: prog.Strings.MustLookup(root.Name)}, hasOTWStruct, kind)
}

func registerHostImports(env *moduleEnv) {
	for _, hf := range runtime.HostImports() {
		env.registerImport(hf.Field, hf.Type)
	}
}

// registerReadArgsHelper reserves read_args_at_fixed_addr, the small
// driver-authored wrapper router.BuildEntrypoint calls: the real
// vm_hooks read_args import only takes a destination pointer, so this
// wrapper supplies the fixed calldataBufPtr address and discards the
// args-length parameter the router passes it (the router keeps that
// value only because user_entrypoint's own single parameter already
// carries it; nothing downstream needs the length before decoding the
// 4-byte selector it has already read).
func registerReadArgsHelper(env *moduleEnv) {
	env.reserveDefined("read_args_at_fixed_addr", wasmenc.FuncType{
		Params: []wasmenc.ValType{wasmenc.I32},
	})
}

func buildReadArgsHelperBody(env *moduleEnv) {
	b := wasmenc.NewBuilder()
	b.I32Const(int32(calldataBufPtr))
	b.Call(env.FuncIndex("read_args"))
	env.setBody("read_args_at_fixed_addr", wasmenc.Code{Body: b.Finish()})
}

func registerRuntimeFunctions(env *moduleEnv) {
	for _, rf := range runtime.Functions() {
		env.reserveDefined(rf.Name, rf.Type)
	}
}

func buildRuntimeBodies(env *moduleEnv) {
	for _, rf := range runtime.Functions() {
		env.setBody(rf.Name, wasmenc.Code{Locals: rf.Locals, Body: rf.Build(env)})
	}
}

func registerCompiledFunctions(env *moduleEnv, le *layout.Engine, prog *mvbc.Program, fns []*mvbc.Function) error {
	for _, mf := range fns {
		if mf.IsNative {
			continue
		}
		ft, err := codegen.FuncTypeOf(le, mf)
		if err != nil {
			return fmt.Errorf("driver: function #%d: %w", mf.ID, err)
		}
		env.reserveDefined(codegen.FuncSymbol(prog, mf.ID), ft)
	}
	return nil
}

func buildCompiledBodies(env *moduleEnv, le *layout.Engine, prog *mvbc.Program, fns []*mvbc.Function) error {
	for _, mf := range fns {
		if mf.IsNative {
			continue
		}
		wf, err := wasmir.Build(prog, mf)
		if err != nil {
			return err
		}
		_, code, err := codegen.EmitFunction(env, le, prog.Types, prog, wf, mf)
		if err != nil {
			return err
		}
		env.setBody(codegen.FuncSymbol(prog, mf.ID), code)
	}
	return nil
}

// entryCandidate is one public root-module function already reduced to
// what both the full compile path (which additionally needs a function
// index to call) and the selectors-only path (which needs nothing
// past this) require.
type entryCandidate struct {
	name         string
	fn           *mvbc.Function
	paramLayouts []layout.TypeLayout
	resultLayout *layout.TypeLayout
	signature    string
	selector     [4]byte
}

// collectEntryCandidates derives each public root-module function's
// Solidity-compatible selector and ABI layout, in lexicographic name
// order (a stable, source-independent dispatch table ordering). A
// candidate with any dynamically-encoded parameter is reported and
// dropped: this router only supports statically-sized parameters. The
// result layout is not checked here.
func collectEntryCandidates(le *layout.Engine, prog *mvbc.Program, root *mvbc.Module, reporter diag.Reporter) ([]entryCandidate, error) {
	type named struct {
		name string
		fn   *mvbc.Function
	}
	var raw []named
	for _, fid := range root.Funcs {
		fn := prog.FunctionByID(fid)
		if fn == nil || fn.Visibility != mvbc.VisibilityPublic {
			continue
		}
		name, _ := prog.Strings.Lookup(fn.Name)
		raw = append(raw, named{name: name, fn: fn})
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].name < raw[j].name })

	modNameStr, _ := prog.Strings.Lookup(root.Name)

	var cands []entryCandidate
	for _, r := range raw {
		paramLayouts := make([]layout.TypeLayout, 0, len(r.fn.Params))
		sigs := make([]string, 0, len(r.fn.Params))
		supported := true
		for _, p := range r.fn.Params {
			l, err := le.LayoutOf(p.Type)
			if err != nil {
				return nil, err
			}
			if l.AbiClass != layout.AbiStatic {
				diag.ReportError(reporter, diag.RouterUnsupportedSignature,
					diag.Location{Module: modNameStr, Function: r.name},
					"entry function parameter has a dynamic ABI encoding, unsupported by this router").Emit()
				supported = false
				break
			}
			sig, err := abi.CanonicalTypeName(prog.Types, p.Type)
			if err != nil {
				return nil, err
			}
			paramLayouts = append(paramLayouts, l)
			sigs = append(sigs, sig)
		}
		if !supported {
			continue
		}

		var resultLayout *layout.TypeLayout
		if len(r.fn.Results) == 1 {
			l, err := le.LayoutOf(r.fn.Results[0])
			if err != nil {
				return nil, err
			}
			resultLayout = &l
		}

		cands = append(cands, entryCandidate{
			name:         r.name,
			fn:           r.fn,
			paramLayouts: paramLayouts,
			resultLayout: resultLayout,
			signature:    fmt.Sprintf("%s(%s)", r.name, strings.Join(sigs, ",")),
			selector:     abi.Selector(r.name, sigs),
		})
	}
	return cands, nil
}

// buildEntryTable adapts collectEntryCandidates's output into what
// router.BuildEntrypoint and the compile cache each need.
func buildEntryTable(env *moduleEnv, le *layout.Engine, prog *mvbc.Program, root *mvbc.Module, reporter diag.Reporter) ([]router.EntryFunc, []SelectorEntry, error) {
	cands, err := collectEntryCandidates(le, prog, root, reporter)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]router.EntryFunc, len(cands))
	selectors := make([]SelectorEntry, len(cands))
	for i, c := range cands {
		entries[i] = router.EntryFunc{
			Name:         c.name,
			Selector:     c.selector,
			FuncIndex:    env.FuncIndex(codegen.FuncSymbol(prog, c.fn.ID)),
			ParamLayouts: c.paramLayouts,
			ResultLayout: c.resultLayout,
		}
		selectors[i] = SelectorEntry{Name: c.name, Signature: c.signature, Selector: c.selector}
	}
	return entries, selectors, nil
}

// Selectors runs L+T only (no monomorphization or codegen) and returns
// the root module's dispatch table, for `movewasm selectors`.
func Selectors(modulePath string, depPaths []string, reporter diag.Reporter) ([]SelectorEntry, error) {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	prog, err := LoadProgram(modulePath, depPaths)
	if err != nil {
		return nil, err
	}
	root := prog.ModuleByID(prog.Root)
	if root == nil {
		return nil, fmt.Errorf("driver: program has no root module")
	}
	le := layout.New(layout.Wasm32Stylus(), prog.Types)
	cands, err := collectEntryCandidates(le, prog, root, reporter)
	if err != nil {
		return nil, err
	}
	out := make([]SelectorEntry, len(cands))
	for i, c := range cands {
		out[i] = SelectorEntry{Name: c.name, Signature: c.signature, Selector: c.selector}
	}
	return out, nil
}

// alignUp8 rounds v up to the next 8-byte boundary, the same alignment
// rt_alloc enforces on every allocation it hands out; the bump
// allocator's starting cursor must already satisfy it so the very
// first rt_alloc call does not have to special-case an odd origin.
func alignUp8(v uint32) uint32 {
	return (v + 7) &^ 7
}

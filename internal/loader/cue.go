package loader

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed schema.cue
var schemaSource string

// LoadCUE loads every definition of the CUE package in dir.
func LoadCUE(dir string) ([]Definition, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definitions directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err), Err: inst.Err}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err), Err: err}
	}
	return decodeCUE(ctx, value)
}

// ParseCUE decodes definitions from a single CUE source. filename is used
// in positions only.
func ParseCUE(src []byte, filename string) ([]Definition, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err), Err: err}
	}
	return decodeCUE(ctx, value)
}

func decodeCUE(ctx *cue.Context, value cue.Value) ([]Definition, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Automaton"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("definition schema: %v", err), Err: err}
	}

	automata := value.LookupPath(cue.ParsePath("automaton"))
	if !automata.Exists() {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "no automaton field found"}
	}
	iter, err := automata.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating automata: %v", err), Pos: automata.Pos(), Err: err}
	}

	var defs []Definition
	for iter.Next() {
		label := iter.Label()
		v := schema.Unify(iter.Value())
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return nil, &LoadError{Code: ErrCodeBuildFailed, Automaton: label, Message: err.Error(), Pos: iter.Value().Pos(), Err: err}
		}
		var def Definition
		if err := v.Decode(&def); err != nil {
			return nil, &LoadError{Code: ErrCodeParse, Automaton: label, Message: err.Error(), Pos: iter.Value().Pos(), Err: err}
		}
		if def.Name == "" {
			def.Name = label
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "no automata found"}
	}
	return defs, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML definition document. Unknown fields are
// rejected.
func ParseYAML(data []byte) ([]Definition, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("parsing YAML: %v", err), Err: err}
	}
	if len(doc.Automata) == 0 {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "no automata found"}
	}
	return doc.Automata, nil
}

// LoadFile loads definitions from a YAML file, a CUE file, or a directory
// holding a CUE package.
func LoadFile(path string) ([]Definition, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}
	if info.IsDir() {
		return LoadCUE(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, path)
	}
	return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("unsupported definition file %s (want .yaml, .yml or .cue)", path)}
}

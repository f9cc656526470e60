package loader

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes for definition loading.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No definition files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build or schema check failed
	ErrCodeParse        = "E010" // YAML/CUE decode failed
	ErrCodeNoName       = "E011" // Definition without name
	ErrCodeDuplicate    = "E012" // Two definitions share a name
	ErrCodeModifier     = "E013" // Unknown state modifier
	ErrCodeUnknownState = "E014" // Transition names an undeclared state
	ErrCodeTransition   = "E015" // Transition without guard, timeout or default
	ErrCodeSymbol       = "E016" // Factory could not resolve a symbol
	ErrCodeSpawnTarget  = "E017" // Spawn names an automaton that is not defined
	ErrCodeAttrOnly     = "E018" // Symbol with an attribute but no type
	ErrCodeMalformed    = "E019" // Automaton failed validation or compilation
)

// LoadError represents an error that occurred while loading definitions.
type LoadError struct {
	Code      string
	Automaton string
	Message   string
	Pos       token.Pos // CUE position if available
	Err       error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Automaton != "" {
		msg = fmt.Sprintf("automaton %q: %s", e.Automaton, msg)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadMode controls how errors are handled while building.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll reports every error and keeps the automata that
	// built cleanly.
	LoadModeCollectAll
)

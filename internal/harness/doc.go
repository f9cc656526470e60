// Package harness runs conformance scenarios against the tima runtime.
//
// A scenario is a YAML file naming automaton definitions, an input string
// fed one character per tick through charstream, the automata to start and
// a list of assertions over the resulting trace and journal:
//
//	name: hello
//	description: recognizes "hi" anywhere in the input
//	definitions: [hi.yaml]
//	input: "ahxhi"
//	start:
//	  - automaton: hi
//	assertions:
//	  - type: final_state
//	    automaton: hi
//	    state: ok
//	  - type: counter
//	    counter: hits
//	    count: 1
//
// Runs are deterministic: instance ids come from a fresh
// testutil.IDSequence and every symbol is resolved through a fresh
// charstream registry. RunWithGolden compares the canonical trace against
// testdata/golden/<name>.golden.
package harness

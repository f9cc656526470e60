// Package loader reads automaton definitions and builds them into
// automaton models through a factory.
//
// Definitions come from YAML documents:
//
//	automata:
//	  - name: blink
//	    states:
//	      - name: on
//	        modifiers: [initial]
//	        actions: ["log:on"]
//	      - name: off
//	    transitions:
//	      - {from: on, to: off, timeout: 3}
//	      - {from: off, to: on, guard: "char:x"}
//
// or from CUE packages, where every field of the top-level "automaton"
// struct is one definition named by its label:
//
//	automaton: blink: {
//		states: [{name: "on", modifiers: ["initial"]}, {name: "off"}]
//		transitions: [{from: "on", to: "off", timeout: 3}]
//	}
//
// CUE definitions are checked against the embedded schema before they are
// decoded. Symbols are written either as "type:attr" strings or as
// {type, attr} objects.
//
// A transition carries a guard, a timeout, both (a bounded guard), or
// default: true.
package loader

// Package queryir defines filters over recorded trace events.
//
// A filter is a tree of predicates on the fields of a trace event:
//
//	And{Predicates: []Predicate{
//		Equals{Field: "automaton", Value: "door"},
//		Range{Field: "tick", Min: 3, Max: 7},
//	}}
//
// Filters are backend-neutral values. Package querysql compiles them to
// parameterized SQL for the trace store; Match evaluates them in memory
// against the same field names, so both give the same answer for the same
// event.
//
// Filters can also be written as conditions on the command line, see
// ParseCondition.
package queryir

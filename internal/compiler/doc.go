// Package compiler turns an automaton.Automaton into an ir.Compiled.
//
// Deadline bands: a state with guards of several lifetimes is split into a
// chain of links. For a state S with
//
//	timeout 9 -> T, bounded guard P (3) -> A, bounded guard R (7) -> B, guard Q -> C
//
// the compiler emits
//
//	S        guards [P R Q]  timeout 3 -> S_3_1
//	S_3_1    guards [R Q]    timeout 4 -> S_7_2
//	S_7_2    guards [Q]      timeout 2 -> T
//
// Guard order inside a link is declaration order; timeouts are deltas from
// the start of the link. Links are synthetic states sharing S's actions, and
// the engine moves between links of one state without running Pre/Post.
package compiler

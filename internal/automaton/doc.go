// Package automaton holds the uncompiled timed automaton model.
//
// An Automaton is a set of named states connected by transitions. Each
// transition is guarded by a predicate over the context, by a deadline
// measured in ticks spent in the source state, or by both:
//
//	AddGuard(s, p, t)        plain guard, valid forever (deadline Infinite)
//	AddTransition(s, p, 7, t) bounded guard, evaluated during the first 7 ticks
//	AddTimeout(s, 5, t)      timeout edge, fires at tick 5 unless preempted
//	AddDefault(s, t)         fires once no guarded alternative can fire any more
//
// The model is mutable while building and validated by Validate. The
// compiler package turns a valid Automaton into the flat, index-addressed
// form that the engine steps.
//
// Context is a type parameter: predicates, actions and spawners all observe
// the same caller-defined context type C.
package automaton

// Package engine steps compiled timed automata.
//
// A Cursor runs one instance of an ir.Compiled automaton; an Executor
// drives a pool of cursors that share one context provider.
//
// TICK SEMANTICS:
//
// Each call to Cursor.Next is one tick for that cursor:
//  1. the timeout of the current link fires if its deadline is reached;
//     moving to the next link of the same state is internal
//  2. otherwise guards are evaluated in declaration order, first match wins
//  3. when nothing fires, Each hooks run and the call ends
//  4. a transition runs Post on the old state, then spawns and Pre on the
//     new one; a transition back to the same state only runs Each
//  5. entering an Urgent state evaluates it again within the same call,
//     bounded by MaxUrgentSteps
//  6. entering a Terminate state ends the cursor
//
// DETERMINISM:
//
// Logical ticks only, never wall-clock time. The executor takes one context
// snapshot per Step and steps cursors in start order, so the same inputs
// always produce the same trace.
package engine

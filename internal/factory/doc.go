// Package factory resolves symbolic names from automaton definitions to
// predicates, actions and spawners.
//
// A Registry maps every name to a constructor closure registered at
// startup. Constructors receive the raw attribute string of the
// definition and may reject it. Resolved symbols are cached per
// (kind, type, attr), so two transitions naming the same predicate with the
// same attribute share one value and the compiler can deduplicate it.
//
// A name that no constructor claims is an UnresolvableSymbolError. Loaders
// treat it as fatal for the automaton being built.
package factory

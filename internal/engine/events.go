package engine

// EventType distinguishes cursor lifecycle events.
type EventType string

const (
	// EventStarted is emitted when a cursor is created, before its initial
	// state is entered.
	EventStarted EventType = "started"
	// EventTransition is emitted for every transition between declared
	// states, self-transitions included. Link hops are not reported.
	EventTransition EventType = "transition"
	// EventReaped is emitted when a cursor terminates and leaves the pool.
	EventReaped EventType = "reaped"
	// EventFault is emitted when a cursor fails and leaves the pool.
	EventFault EventType = "fault"
)

// Event describes one cursor lifecycle change. Tick is the executor tick
// the event happened in (0 for cursors started before the first Step).
type Event struct {
	Type      EventType
	Tick      int64
	Instance  string
	Key       string
	Automaton string
	From      string
	To        string
	Predicate string
	Timeout   bool
	Self      bool
	Err       error
}

// Listener receives executor events synchronously, in order.
type Listener func(Event)

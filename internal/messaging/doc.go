// Package messaging lets automaton instances exchange messages.
//
// Every instance key owns a Mailbox held by a PostOffice. Automata built
// for messaging run over *Env[U], which carries the user context U of the
// tick together with the instance's key, mailbox and current message.
//
// Two kinds of symbol are provided:
//
//	?type   Select predicate. Holds when the mailbox contains a message
//	        matching the pattern; the message is removed and becomes the
//	        current message for the actions of the transition it enables.
//	!type   Send action. On entry, builds a message from a prototype and
//	        field rules applied to the current message and delivers it to
//	        the destination's mailbox.
//
// NewFactory wraps a factory for U so that definitions can use both
// messaging symbols and ordinary ones; ordinary symbols are lifted to read
// Env.User.
//
// # Attributes
//
// Messaging symbols take a comma separated attribute list:
//
//	?ping          head            only match the head of the mailbox
//	?ping          n=3             field n must equal 3
//	!pong          to=parent       send to the parent instance (also self, or a key)
//	!pong          seq=seq+1       copy seq from the current message, plus one
//	!pong          val=7           constant field
//
// Instance keys are hierarchical: a child spawned by "root" with
// automaton.SequentialKeys gets "root/job-1", whose parent is "root".
package messaging

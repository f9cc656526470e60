package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/compiler"
	"github.com/roach88/tima/internal/engine"
	"github.com/roach88/tima/internal/ir"
)

type world = *Env[struct{}]

func compile(t *testing.T, a *automaton.Automaton[world]) *ir.Compiled[world] {
	t.Helper()
	c, err := compiler.Compile(a)
	require.NoError(t, err)
	return c
}

// capture records the current message seen by Pre.
func capture(seen *[]Message) automaton.Action[world] {
	return &automaton.ActionFuncs[world]{
		Name: "capture",
		OnPre: func(e world, _ string) {
			if m, ok := e.Current(); ok {
				*seen = append(*seen, m)
			}
		},
	}
}

func newExecutor(office *PostOffice, ids ...string) *engine.Executor[world] {
	p := NewProvider(engine.Static(struct{}{}), office)
	return engine.NewExecutor[world](p, engine.WithIDGenerator(engine.NewFixedGenerator(ids...)))
}

func TestRoundTrip_PingPong(t *testing.T) {
	var seen []Message

	pinger := automaton.New[world]("pinger")
	ping := pinger.AddState("ping", automaton.Initial,
		Send[struct{}]("!ping", To("b"), NewMessage("ping", map[string]int{"seq": 1})))
	done := pinger.AddState("done", automaton.Terminate, capture(&seen))
	pinger.AddGuard(ping, Select[struct{}]("?pong", TypePattern("pong"), Anywhere), done)

	ponger := automaton.New[world]("ponger")
	wait := ponger.AddState("wait", automaton.Initial)
	reply := ponger.AddState("reply", automaton.Terminate,
		capture(&seen),
		Send[struct{}]("!pong", To("a"), NewMessage("pong", nil), FieldRule{Field: "seq", Transform: Offset(1)}))
	ponger.AddGuard(wait, Select[struct{}]("?ping", TypePattern("ping"), Anywhere), reply)

	office := NewPostOffice(nil)
	ex := newExecutor(office, "A", "B")
	require.NoError(t, ex.Start(compile(t, pinger), "a"))
	require.NoError(t, ex.Start(compile(t, ponger), "b"))
	assert.Equal(t, 1, office.Mailbox("b").Len())

	alive, err := ex.Step()
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, 0, office.Mailbox("b").Len(), "exactly one message claimed")
	require.Len(t, seen, 1)
	assert.Equal(t, "ping{seq=1}", seen[0].String(), "claimed message is current for the entered state's actions")

	alive, err = ex.Step()
	require.NoError(t, err)
	assert.False(t, alive)
	require.Len(t, seen, 2)
	assert.Equal(t, "pong{seq=2}", seen[1].String())
}

func TestRoundTrip_RemovesExactlyOne(t *testing.T) {
	a := automaton.New[world]("eater")
	wait := a.AddState("wait", automaton.Initial)
	ate := a.AddState("ate", automaton.Terminate)
	a.AddGuard(wait, Select[struct{}]("?food", TypePattern("food"), Anywhere), ate)

	office := NewPostOffice(nil)
	for i := 0; i < 2; i++ {
		require.NoError(t, office.Deliver("e", NewMessage("food", map[string]int{"n": i})))
	}
	ex := newExecutor(office, "E")
	require.NoError(t, ex.Start(compile(t, a), "e"))
	require.NoError(t, ex.Run(context.Background(), 5))

	left := office.Mailbox("e").Snapshot()
	require.Len(t, left, 1)
	assert.Equal(t, "food{n=1}", left[0].String())
}

func TestRoundTrip_ChildReportsToParent(t *testing.T) {
	child := automaton.New[world]("worker")
	child.AddState("hello", automaton.Initial|automaton.Terminate,
		Send[struct{}]("!hello", Parent(), NewMessage("hello", nil)))

	parent := automaton.New[world]("boss")
	fork := parent.AddState("fork", automaton.Initial|automaton.Spawn)
	keys := automaton.SequentialKeys[world]("w")
	parent.AddSpawn(fork, "worker", keys)
	parent.AddSpawn(fork, "worker", keys)
	collect := parent.AddState("collect", 0)
	done := parent.AddState("done", automaton.Terminate)
	helloP := Select[struct{}]("?hello", TypePattern("hello"), Anywhere)
	parent.AddGuard(fork, helloP, collect)
	parent.AddGuard(collect, helloP, done)

	var events []engine.Event
	office := NewPostOffice(nil)
	p := NewProvider(engine.Static(struct{}{}), office)
	ex := engine.NewExecutor[world](p,
		engine.WithIDGenerator(engine.NewFixedGenerator("P", "W1", "W2")),
		engine.WithListener(func(ev engine.Event) { events = append(events, ev) }),
	)
	ex.Register(compile(t, child), compile(t, parent))
	require.NoError(t, ex.StartNamed("boss", "root"))
	assert.Equal(t, 2, office.Mailbox("root").Len())

	require.NoError(t, ex.Run(context.Background(), 10))
	assert.Empty(t, ex.Cursors())
	assert.Equal(t, int64(2), ex.Tick())

	var started []string
	for _, ev := range events {
		if ev.Type == engine.EventStarted {
			started = append(started, ev.Key)
		}
	}
	assert.Equal(t, []string{"root", "root/w-1", "root/w-2"}, started)
}

func TestProvider_SharesSnapshotPerTick(t *testing.T) {
	n := 0
	base := engine.ProviderFunc[int](func() int { n++; return n })
	p := NewProvider[int](base, NewPostOffice(nil))

	a := p.ContextFor("a")
	assert.Equal(t, 1, a.User, "sampled outside a tick")

	p.BeginTick(1)
	a = p.ContextFor("a")
	b := p.ContextFor("b")
	assert.Equal(t, 2, a.User)
	assert.Equal(t, 2, b.User)
	assert.Equal(t, int64(1), b.Tick)
	assert.Same(t, a, p.ContextFor("a"), "one Env per key")
	assert.Same(t, p.Office().Mailbox("b"), b.Mailbox())

	p.EndTick(1)
	assert.Equal(t, 3, p.ContextFor("a").User, "re-sampled once the tick is over")
	assert.Equal(t, 4, p.ContextFor("b").User)
	assert.Equal(t, int64(1), p.ContextFor("b").Tick)
}

func TestProvider_StartBetweenTicksSeesFreshContext(t *testing.T) {
	n := 0
	base := engine.ProviderFunc[int](func() int { n++; return n })
	var seen []int
	a := automaton.New[*Env[int]]("watcher")
	a.AddState("s", automaton.Initial|automaton.Terminate, &automaton.ActionFuncs[*Env[int]]{
		Name:  "see",
		OnPre: func(e *Env[int], _ string) { seen = append(seen, e.User) },
	})
	c, err := compiler.Compile(a)
	require.NoError(t, err)

	p := NewProvider[int](base, NewPostOffice(nil))
	ex := engine.NewExecutor[*Env[int]](p, engine.WithIDGenerator(engine.NewFixedGenerator("x", "y")))
	require.NoError(t, ex.Start(c, "x"))
	_, err = ex.Step()
	require.NoError(t, err)
	require.NoError(t, ex.Start(c, "y"))

	assert.Equal(t, []int{1, 3}, seen)
}

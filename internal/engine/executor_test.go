package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/ir"
)

// countingProvider counts snapshots and ticks.
type countingProvider struct {
	snapshots int
	ticks     []int64
	ctx       env
}

func (p *countingProvider) Context() env {
	p.snapshots++
	return p.ctx
}

func (p *countingProvider) BeginTick(tick int64) { p.ticks = append(p.ticks, tick) }

// keyedProvider hands every key its own flags.
type keyedProvider struct {
	byKey map[string]env
	asked []string
}

func (p *keyedProvider) Context() env { return env{} }

func (p *keyedProvider) ContextFor(key string) env {
	p.asked = append(p.asked, key)
	return p.byKey[key]
}

// timer terminates after n ticks.
func timer(t *testing.T, name string, n int) *ir.Compiled[env] {
	a := automaton.New[env](name)
	s := a.AddState("wait", automaton.Initial)
	end := a.AddState("end", automaton.Terminate)
	a.AddTimeout(s, n, end)
	return compile(t, a)
}

func TestExecutor_SharedSnapshotPerStep(t *testing.T) {
	p := &countingProvider{ctx: env{}}
	ex := NewExecutor[env](p, WithIDGenerator(NewFixedGenerator("a", "b", "c")))
	for _, n := range []int{2, 3, 4} {
		require.NoError(t, ex.Start(timer(t, "timer", n), ""))
	}
	startSnapshots := p.snapshots

	alive, err := ex.Step()
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, startSnapshots+1, p.snapshots, "one snapshot per step")
	assert.Equal(t, []int64{1}, p.ticks)
}

func TestExecutor_ReapsInOrder(t *testing.T) {
	var events []Event
	ex := NewExecutor(Static(env{}),
		WithIDGenerator(NewFixedGenerator("a", "b", "c")),
		WithListener(func(ev Event) { events = append(events, ev) }),
	)
	require.NoError(t, ex.Start(timer(t, "t3", 3), "x"))
	require.NoError(t, ex.Start(timer(t, "t1", 1), "y"))
	require.NoError(t, ex.Start(timer(t, "t2", 2), "z"))

	var ids []string
	for _, c := range ex.Cursors() {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids, "insertion order")

	alive, err := ex.Step()
	require.NoError(t, err)
	assert.True(t, alive)
	require.Len(t, ex.Cursors(), 2)
	assert.Equal(t, "a", ex.Cursors()[0].ID())
	assert.Equal(t, "c", ex.Cursors()[1].ID())

	require.NoError(t, ex.Run(context.Background(), 0))
	assert.Empty(t, ex.Cursors())
	assert.Equal(t, int64(3), ex.Tick())

	var reaped []string
	for _, ev := range events {
		if ev.Type == EventReaped {
			reaped = append(reaped, ev.Instance)
		}
	}
	assert.Equal(t, []string{"b", "c", "a"}, reaped)
}

func TestExecutor_TransitionEvents(t *testing.T) {
	var events []Event
	a := automaton.New[env]("door")
	closed := a.AddState("closed", automaton.Initial)
	open := a.AddState("open", 0)
	a.AddGuard(closed, flag("push"), open)
	a.AddTimeout(open, 2, closed)

	ctx := env{"push": true}
	ex := NewExecutor(ProviderFunc[env](func() env { return ctx }),
		WithIDGenerator(NewFixedGenerator("d")),
		WithListener(func(ev Event) { events = append(events, ev) }),
	)
	require.NoError(t, ex.Start(compile(t, a), ""))
	_, err := ex.Step()
	require.NoError(t, err)
	ctx = env{}
	require.NoError(t, ex.Run(context.Background(), 2))

	require.Len(t, events, 3)
	assert.Equal(t, Event{Type: EventStarted, Instance: "d", Automaton: "door", To: "closed"}, events[0])
	assert.Equal(t, Event{Type: EventTransition, Tick: 1, Instance: "d", Automaton: "door", From: "closed", To: "open", Predicate: "push"}, events[1])
	assert.Equal(t, Event{Type: EventTransition, Tick: 3, Instance: "d", Automaton: "door", From: "open", To: "closed", Timeout: true}, events[2])
}

func TestExecutor_FaultIsolation(t *testing.T) {
	var faults []Event
	a := automaton.New[env]("boom")
	s := a.AddState("s", automaton.Initial)
	x := a.AddState("x", 0, &automaton.ActionFuncs[env]{
		Name:  "explode",
		OnPre: func(env, string) { panic("kaboom") },
	})
	a.AddDefault(s, x)
	a.AddGuard(x, flag("never"), s)

	ex := NewExecutor(Static(env{}),
		WithIDGenerator(NewFixedGenerator("bad", "good")),
		WithListener(func(ev Event) {
			if ev.Type == EventFault {
				faults = append(faults, ev)
			}
		}),
	)
	require.NoError(t, ex.Start(compile(t, a), ""))
	require.NoError(t, ex.Start(timer(t, "timer", 3), ""))

	alive, err := ex.Step()
	require.Error(t, err)
	assert.True(t, IsActionPanic(err))
	assert.True(t, alive)
	require.Len(t, ex.Cursors(), 1)
	assert.Equal(t, "good", ex.Cursors()[0].ID())

	require.Len(t, faults, 1)
	assert.Equal(t, "bad", faults[0].Instance)
	assert.Contains(t, faults[0].Err.Error(), "kaboom")

	require.NoError(t, ex.Run(context.Background(), 0))
}

func TestExecutor_UrgentCycleFaultsCursor(t *testing.T) {
	a := automaton.New[env]("loop")
	u1 := a.AddState("u1", automaton.Initial|automaton.Urgent)
	u2 := a.AddState("u2", automaton.Urgent)
	a.AddDefault(u1, u2)
	a.AddDefault(u2, u1)

	ex := NewExecutor(Static(env{}), WithMaxUrgentSteps(5), WithIDGenerator(NewFixedGenerator("l")))
	err := ex.Start(compile(t, a), "")
	require.Error(t, err)
	assert.True(t, IsUrgentCycle(err))
	assert.Empty(t, ex.Cursors())
}

func spawner(t *testing.T) (*ir.Compiled[env], *ir.Compiled[env]) {
	t.Helper()
	child := automaton.New[env]("child")
	cs := child.AddState("run", automaton.Initial)
	ce := child.AddState("done", automaton.Terminate)
	child.AddTimeout(cs, 2, ce)

	parent := automaton.New[env]("parent")
	idle := parent.AddState("idle", automaton.Initial)
	fork := parent.AddState("fork", automaton.Spawn)
	parent.AddSpawn(fork, "child", automaton.SequentialKeys[env]("job"))
	parent.AddGuard(idle, flag("go"), fork)
	parent.AddGuard(fork, flag("go"), fork)
	parent.AddGuard(fork, flag("stop"), idle)

	return compile(t, parent), compile(t, child)
}

func TestExecutor_SpawnJoinsAfterStep(t *testing.T) {
	parent, child := spawner(t)
	var started []Event
	ctx := env{"go": true}
	ex := NewExecutor(ProviderFunc[env](func() env { return ctx }),
		WithIDGenerator(NewFixedGenerator("p", "c1", "c2")),
		WithListener(func(ev Event) {
			if ev.Type == EventStarted {
				started = append(started, ev)
			}
		}),
	)
	ex.Register(parent, child)
	require.NoError(t, ex.StartNamed("parent", "root"))

	_, err := ex.Step()
	require.NoError(t, err)
	require.Len(t, ex.Cursors(), 2)
	c1 := ex.Cursors()[1]
	assert.Equal(t, "child", c1.Automaton().Name())
	assert.Equal(t, "root/job-1", c1.Key())
	assert.Equal(t, 0, c1.Ticks(), "spawned cursor is not stepped in its spawn tick")

	// A self-transition does not re-enter the state, so nothing spawns.
	_, err = ex.Step()
	require.NoError(t, err)
	require.Len(t, ex.Cursors(), 2)
	assert.Equal(t, 1, ex.Cursors()[1].Ticks())

	ctx = env{}
	_, err = ex.Step()
	require.NoError(t, err)
	require.Len(t, ex.Cursors(), 1, "child terminated after two ticks")

	ctx = env{"stop": true}
	_, err = ex.Step()
	require.NoError(t, err)
	ctx = env{"go": true}
	_, err = ex.Step()
	require.NoError(t, err)
	require.Len(t, ex.Cursors(), 2)
	assert.Equal(t, "root/job-2", ex.Cursors()[1].Key())

	require.Len(t, started, 3)
	assert.Equal(t, int64(1), started[1].Tick)
}

func TestExecutor_ChildFaultSparesParent(t *testing.T) {
	rec := &recorder{}
	parent := automaton.New[env]("parent")
	idle := parent.AddState("idle", automaton.Initial)
	p1 := parent.AddState("p1", 0, rec.action("p1"))
	parent.AddSpawn(p1, "child", nil)
	parent.AddGuard(idle, flag("go"), p1)
	parent.AddGuard(p1, flag("never"), idle)

	child := automaton.New[env]("child")
	u1 := child.AddState("u1", automaton.Initial|automaton.Urgent)
	u2 := child.AddState("u2", automaton.Urgent)
	child.AddDefault(u1, u2)
	child.AddDefault(u2, u1)

	var faults []Event
	ex := NewExecutor(Static(env{"go": true}),
		WithMaxUrgentSteps(10),
		WithIDGenerator(NewFixedGenerator("p", "c")),
		WithListener(func(ev Event) {
			if ev.Type == EventFault {
				faults = append(faults, ev)
			}
		}),
	)
	ex.Register(compile(t, parent), compile(t, child))
	require.NoError(t, ex.StartNamed("parent", ""))

	alive, err := ex.Step()
	require.Error(t, err, "the child's fault is reported by the step")
	assert.True(t, IsUrgentCycle(err))
	assert.True(t, alive)

	require.Len(t, faults, 1)
	assert.Equal(t, "child", faults[0].Automaton)
	assert.Equal(t, "c", faults[0].Instance)

	require.Len(t, ex.Cursors(), 1)
	assert.Equal(t, "p", ex.Cursors()[0].ID())
	assert.Equal(t, "p1", ex.Cursors()[0].StateName())
	assert.Equal(t, []string{"pre:p1"}, rec.calls, "parent entered p1 completely")

	_, err = ex.Step()
	require.NoError(t, err)
	assert.Equal(t, []string{"pre:p1", "each:p1"}, rec.calls)
}

func TestExecutor_SpawnUnknownAutomaton(t *testing.T) {
	parent, _ := spawner(t)
	ex := NewExecutor(Static(env{"go": true}), WithIDGenerator(NewFixedGenerator("p")))
	require.NoError(t, ex.Start(parent, ""))

	_, err := ex.Step()
	require.Error(t, err)
	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeUnknownAutomaton, re.Code)
	assert.Empty(t, ex.Cursors())
}

func TestExecutor_KeyedProvider(t *testing.T) {
	a := automaton.New[env]("light")
	off := a.AddState("off", automaton.Initial)
	on := a.AddState("on", automaton.Terminate)
	a.AddGuard(off, flag("switch"), on)
	c := compile(t, a)

	p := &keyedProvider{byKey: map[string]env{"kitchen": {"switch": true}, "hall": {}}}
	ex := NewExecutor[env](p, WithIDGenerator(NewFixedGenerator("k", "h")))
	require.NoError(t, ex.Start(c, "kitchen"))
	require.NoError(t, ex.Start(c, "hall"))
	p.asked = nil

	alive, err := ex.Step()
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, []string{"kitchen", "hall"}, p.asked)
	require.Len(t, ex.Cursors(), 1)
	assert.Equal(t, "hall", ex.Cursors()[0].Key())
}

func TestExecutor_RunStopsOnContext(t *testing.T) {
	a := automaton.New[env]("forever")
	s := a.AddState("s", automaton.Initial)
	a.AddGuard(s, flag("never"), s)

	ex := NewExecutor(Static(env{}), WithIDGenerator(NewFixedGenerator("f")))
	require.NoError(t, ex.Start(compile(t, a), ""))

	require.NoError(t, ex.Run(context.Background(), 10))
	assert.Equal(t, int64(10), ex.Tick())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ex.Run(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(10), ex.Tick())
}

func TestExecutor_StartNamedUnknown(t *testing.T) {
	ex := NewExecutor(Static(env{}))
	err := ex.StartNamed("ghost", "")
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeUnknownAutomaton, re.Code)
}

func TestExecutor_CursorsAreReadOnlyViews(t *testing.T) {
	ex := NewExecutor(Static(env{}), WithIDGenerator(NewFixedGenerator("v")))
	require.NoError(t, ex.Start(timer(t, "timer", 2), "k"))

	views := ex.Cursors()
	require.Len(t, views, 1)
	v := views[0]
	assert.Equal(t, "v", v.ID())
	assert.Equal(t, "k", v.Key())
	assert.Equal(t, "wait", v.StateName())
	assert.Equal(t, 0, v.State())
	assert.False(t, v.Terminated())
	assert.Nil(t, v.LastPredicate())

	_, err := ex.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, v.Ticks(), "views follow the live cursor")
}

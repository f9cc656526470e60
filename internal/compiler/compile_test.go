package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/ir"
)

type ctx struct{}

func pred(name string) automaton.Predicate[ctx] {
	return automaton.NewPredicate(name, func(ctx, string) bool { return false })
}

func guardNames(c *ir.Compiled[ctx], i int) []string {
	var out []string
	for _, g := range c.Guards(i) {
		out = append(out, c.PredicateAt(g.Predicate).Type()+"->"+c.State(g.Target).Name)
	}
	return out
}

func TestCompile_DefaultOnly(t *testing.T) {
	a := automaton.New[ctx]("default")
	s := a.AddState("s", automaton.Initial)
	d := a.AddState("d", automaton.Terminate)
	a.AddDefault(s, d)

	c, err := Compile(a)
	require.NoError(t, err)

	deadline, target := c.TimeoutOf(0)
	assert.Equal(t, 0, deadline)
	assert.Equal(t, 1, target)
	assert.Empty(t, c.Guards(0))
	assert.Equal(t, 2, c.Len(), "default alone needs no links")
}

func TestCompile_TimeoutPreemptsLongerGuards(t *testing.T) {
	a := automaton.New[ctx]("bands")
	p, q := pred("P"), pred("Q")
	s := a.AddState("s", automaton.Initial)
	x := a.AddState("x", 0)
	y := a.AddState("y", 0)
	z := a.AddState("z", 0)
	a.AddTimeout(s, 3, x)
	a.AddTransition(s, p, 7, y)
	a.AddGuard(s, q, z)

	c, err := Compile(a)
	require.NoError(t, err)

	assert.Equal(t, []string{"P->y", "Q->z"}, guardNames(c, 0))
	deadline, target := c.TimeoutOf(0)
	assert.Equal(t, 3, deadline)
	assert.Equal(t, "x", c.State(target).Name)
	assert.Equal(t, 4, c.Len())
}

func TestCompile_BandChain(t *testing.T) {
	a := automaton.New[ctx]("chain")
	p, r, q := pred("P"), pred("R"), pred("Q")
	s := a.AddState("s", automaton.Initial|automaton.Urgent)
	ta := a.AddState("a", 0)
	tb := a.AddState("b", 0)
	tc := a.AddState("c", 0)
	tt := a.AddState("t", automaton.Terminate)
	a.AddTimeout(s, 9, tt)
	a.AddTransition(s, p, 3, ta)
	a.AddTransition(s, r, 7, tb)
	a.AddGuard(s, q, tc)

	c, err := Compile(a)
	require.NoError(t, err)
	require.Equal(t, 7, c.Len())

	assert.Equal(t, []string{"P->a", "R->b", "Q->c"}, guardNames(c, 0))
	d, link1 := c.TimeoutOf(0)
	assert.Equal(t, 3, d)
	assert.Equal(t, "s_3_1", c.State(link1).Name)

	assert.Equal(t, []string{"R->b", "Q->c"}, guardNames(c, link1))
	d, link2 := c.TimeoutOf(link1)
	assert.Equal(t, 4, d)
	assert.Equal(t, "s_7_2", c.State(link2).Name)

	assert.Equal(t, []string{"Q->c"}, guardNames(c, link2))
	d, end := c.TimeoutOf(link2)
	assert.Equal(t, 2, d)
	assert.Equal(t, "t", c.State(end).Name)

	for _, link := range []int{link1, link2} {
		assert.True(t, c.Synthetic(link))
		assert.Equal(t, 0, c.Origin(link))
		st := c.State(link)
		assert.False(t, st.Modifiers.Has(automaton.Initial))
		assert.True(t, st.Modifiers.Has(automaton.Urgent))
	}
	assert.Equal(t, 0, c.Initial())
}

func TestCompile_BoundedGuardsThenPlainTail(t *testing.T) {
	a := automaton.New[ctx]("tail")
	p, q := pred("P"), pred("Q")
	s := a.AddState("s", automaton.Initial)
	x := a.AddState("x", 0)
	a.AddTransition(s, p, 5, x)
	a.AddGuard(s, q, x)

	c, err := Compile(a)
	require.NoError(t, err)

	d, tail := c.TimeoutOf(0)
	assert.Equal(t, 5, d)
	assert.Equal(t, []string{"Q->x"}, guardNames(c, tail))
	d, _ = c.TimeoutOf(tail)
	assert.Equal(t, ir.NoTimeout, d)
}

func TestCompile_BoundedGuardThenDefault(t *testing.T) {
	a := automaton.New[ctx]("fallback")
	s := a.AddState("s", automaton.Initial)
	x := a.AddState("x", 0)
	d := a.AddState("d", 0)
	a.AddTransition(s, pred("P"), 3, x)
	a.AddDefault(s, d)

	c, err := Compile(a)
	require.NoError(t, err)

	deadline, target := c.TimeoutOf(0)
	assert.Equal(t, 3, deadline)
	assert.Equal(t, "d", c.State(target).Name)
	assert.Equal(t, 3, c.Len())
}

func TestCompile_SinkAndPlainGuards(t *testing.T) {
	a := automaton.New[ctx]("sink")
	s := a.AddState("s", automaton.Initial)
	x := a.AddState("x", 0)
	a.AddGuard(s, pred("P"), x)

	c, err := Compile(a)
	require.NoError(t, err)
	for i := 0; i < c.Len(); i++ {
		d, tgt := c.TimeoutOf(i)
		assert.Equal(t, ir.NoTimeout, d)
		assert.Equal(t, ir.NoTimeout, tgt)
	}
	assert.Empty(t, c.Guards(1))
}

func TestCompile_PredicateDeduplication(t *testing.T) {
	a := automaton.New[ctx]("dedup")
	p := pred("P")
	s := a.AddState("s", automaton.Initial)
	x := a.AddState("x", 0)
	a.AddGuard(s, p, x)
	a.AddGuard(x, p, s)
	a.AddGuard(x, pred("P"), s)

	c, err := Compile(a)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Predicates(), "same value shared, distinct values kept apart")
}

func TestCompile_ArrayLengthsMatch(t *testing.T) {
	a := automaton.New[ctx]("lengths")
	s := a.AddState("s", automaton.Initial)
	x := a.AddState("x", 0)
	a.AddTransition(s, pred("P"), 2, x)
	a.AddTransition(s, pred("Q"), 4, x)
	a.AddTimeout(s, 6, x)
	a.AddDefault(x, s)

	c, err := Compile(a)
	require.NoError(t, err)
	g := c.Graph()
	assert.Len(t, g.Nodes, c.Len())
	assert.Len(t, c.StateNames(), c.Len())
	for i := 0; i < c.Len(); i++ {
		assert.NotPanics(t, func() {
			c.Guards(i)
			c.TimeoutOf(i)
			c.Origin(i)
		})
	}
}

func TestCompile_MalformedRejected(t *testing.T) {
	a := automaton.New[ctx]("bad")
	a.AddState("a", automaton.Initial)
	a.AddState("b", automaton.Initial)

	c, err := Compile(a)
	assert.Nil(t, c)
	require.Error(t, err)
	assert.True(t, automaton.IsMalformed(err))
}

func TestCompile_FingerprintDeterministic(t *testing.T) {
	build := func() *automaton.Automaton[ctx] {
		a := automaton.New[ctx]("fp")
		s := a.AddState("s", automaton.Initial)
		x := a.AddState("x", automaton.Terminate)
		a.AddTransition(s, pred("P"), 2, x)
		a.AddTimeout(s, 5, x)
		return a
	}
	c1, err := Compile(build())
	require.NoError(t, err)
	c2, err := Compile(build())
	require.NoError(t, err)

	f1, err := c1.Fingerprint()
	require.NoError(t, err)
	f2, err := c2.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
}

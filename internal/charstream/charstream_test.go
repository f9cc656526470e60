package charstream

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/compiler"
	"github.com/roach88/tima/internal/engine"
	"github.com/roach88/tima/internal/factory"
)

func TestStream(t *testing.T) {
	s := New("h\u00e9")
	assert.Equal(t, Input{Char: 'h'}, s.Context(), "before the first tick")

	s.BeginTick(1)
	assert.Equal(t, Input{Char: 'h', Pos: 0}, s.Context())
	s.BeginTick(2)
	assert.Equal(t, Input{Char: '\u00e9', Pos: 1}, s.Context())
	assert.False(t, s.Exhausted())
	s.BeginTick(3)
	assert.Equal(t, Input{Pos: 2, EOF: true}, s.Context())
	assert.True(t, s.Exhausted())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "EOF", s.Context().String())
}

func TestParseChar(t *testing.T) {
	for attr, want := range map[string]rune{"h": 'h', `\n`: '\n', `'\t'`: '\t', "\u00e9": '\u00e9', " ": ' '} {
		got, err := ParseChar(attr)
		require.NoError(t, err, attr)
		assert.Equal(t, want, got, attr)
	}
	_, err := ParseChar("ab")
	assert.Error(t, err)
	_, err = ParseChar("")
	assert.Error(t, err)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func recognizer(t *testing.T, reg factory.Factory[Input]) *automaton.Automaton[Input] {
	t.Helper()
	a := automaton.New[Input]("hi")
	s0 := a.AddState("s0", automaton.Initial)
	s1 := a.AddState("s1", 0, must(reg.NewAction("log", "h")))
	ok := a.AddState("ok", automaton.Terminate, must(reg.NewAction("log", "ok")), must(reg.NewAction("count", "hits")))
	fail := a.AddState("fail", automaton.Terminate)
	a.AddGuard(s0, must(reg.NewPredicate("char", "h")), s1)
	a.AddGuard(s0, must(reg.NewPredicate("end", "")), fail)
	a.AddGuard(s0, must(reg.NewPredicate("any", "")), s0)
	a.AddGuard(s1, must(reg.NewPredicate("char", "i")), ok)
	a.AddGuard(s1, must(reg.NewPredicate("any", "")), s0)
	a.AddGuard(s1, must(reg.NewPredicate("end", "")), fail)
	return a
}

func TestRecognizer(t *testing.T) {
	var out bytes.Buffer
	j := NewJournal(&out)
	reg := Symbols(j, nil)
	c, err := compiler.Compile(recognizer(t, reg))
	require.NoError(t, err)

	stream := New("ahxhi")
	ex := engine.NewExecutor[Input](stream, engine.WithIDGenerator(engine.NewFixedGenerator("r")))
	require.NoError(t, ex.Start(c, ""))
	require.NoError(t, ex.Run(context.Background(), 10))

	assert.Equal(t, int64(5), ex.Tick())
	assert.Equal(t, []string{
		"enter h on 'h'",
		"leave h on 'x'",
		"enter h on 'h'",
		"leave h on 'i'",
		"enter ok on 'i'",
	}, j.Lines())
	assert.Equal(t, "enter h on 'h'\nleave h on 'x'\nenter h on 'h'\nleave h on 'i'\nenter ok on 'i'\n", out.String())
	assert.Equal(t, 1, j.Count("hits"))
	assert.Equal(t, map[string]int{"hits": 1}, j.Counts())
}

func TestRecognizer_EOF(t *testing.T) {
	j := NewJournal(nil)
	reg := Symbols(j, nil)
	c, err := compiler.Compile(recognizer(t, reg))
	require.NoError(t, err)

	ex := engine.NewExecutor[Input](New("ah"), engine.WithIDGenerator(engine.NewFixedGenerator("r")))
	require.NoError(t, ex.Start(c, "k"))
	require.NoError(t, ex.Run(context.Background(), 10))
	assert.Equal(t, int64(3), ex.Tick())
	assert.Equal(t, []string{"[k] enter h on 'h'", "[k] leave h on EOF"}, j.Lines())
	assert.Zero(t, j.Count("hits"))
}

func TestSymbols(t *testing.T) {
	reg := Symbols(NewJournal(nil), nil)
	_, err := reg.NewPredicate("char", "xy")
	assert.True(t, factory.IsUnresolvable(err))
	_, err = reg.NewAction("count", "")
	assert.True(t, factory.IsUnresolvable(err))

	sp, err := reg.NewSpawner("seq", "")
	require.NoError(t, err)
	assert.Equal(t, "p/child-1", sp.SpawnKey(Input{}, "p"))

	assert.Equal(t, []string{"any", "char", "end"}, reg.Names(factory.KindPredicate))
	assert.Equal(t, []string{"count", "log"}, reg.Names(factory.KindAction))
}

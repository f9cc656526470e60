package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/testutil"
)

func TestExecutor_KeyedHooksInStartOrder(t *testing.T) {
	tape := &testutil.Tape{}
	a := automaton.New[env]("blink")
	on := a.AddState("on", automaton.Initial, testutil.RecordingAction[env](tape, "on"))
	off := a.AddState("off", automaton.Terminate, testutil.RecordingAction[env](tape, "off"))
	a.AddTimeout(on, 1, off)

	var reaped []string
	ex := NewExecutor(Static(env{}),
		WithIDGenerator(testutil.NewIDSequence("b")),
		WithListener(func(ev Event) {
			if ev.Type == EventReaped {
				reaped = append(reaped, ev.Instance)
			}
		}),
	)
	c := compile(t, a)
	require.NoError(t, ex.Start(c, "x"))
	require.NoError(t, ex.Start(c, "y"))

	alive, err := ex.Step()
	require.NoError(t, err)
	assert.False(t, alive)

	assert.Equal(t, []string{
		"x pre:on",
		"y pre:on",
		"x post:on",
		"x pre:off",
		"y post:on",
		"y pre:off",
	}, tape.Entries())
	assert.Equal(t, []string{"b-1", "b-2"}, reaped)
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomain(t *testing.T) {
	a := hashWithDomain(DomainCompiled, []byte("x"))
	b := hashWithDomain(DomainTrace, []byte("x"))
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b, "domains must separate identical payloads")
	assert.Equal(t, a, hashWithDomain(DomainCompiled, []byte("x")))
}

func TestFingerprint_Stable(t *testing.T) {
	c1 := mustCompiled(t, testTables())
	c2 := mustCompiled(t, testTables())

	f1, err := c1.Fingerprint()
	require.NoError(t, err)
	f2, err := c2.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2)

	changed := testTables()
	changed.TimeoutDeadline[0] = 9
	f3, err := mustCompiled(t, changed).Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, f1, f3)
}

func TestTraceHash(t *testing.T) {
	h1, err := TraceHash([]any{map[string]any{"tick": 1, "to": "b"}})
	require.NoError(t, err)
	h2, err := TraceHash([]any{map[string]any{"to": "b", "tick": 1}})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	_, err = TraceHash(1.5)
	assert.Error(t, err)
}

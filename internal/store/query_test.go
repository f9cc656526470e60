package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tima/internal/queryir"
)

func TestQueryTrace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	id, err := s.CreateRun(ctx, Run{ID: "r1"})
	require.NoError(t, err)
	events := sampleEvents()
	require.NoError(t, s.WriteTrace(ctx, id, events))

	filters := map[string]queryir.Predicate{
		"all":      nil,
		"bell":     queryir.Equals{Field: "automaton", Value: "bell"},
		"timeouts": queryir.Equals{Field: "timeout", Value: true},
		"tick 3":   queryir.Range{Field: "tick", Min: 3, Max: 3},
		"not door": queryir.Not{Predicate: queryir.Equals{Field: "automaton", Value: "door"}},
		"either": queryir.Or{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "type", Value: "fault"},
			queryir.Equals{Field: "from", Value: "closed"},
		}},
	}
	for name, f := range filters {
		t.Run(name, func(t *testing.T) {
			got, err := s.QueryTrace(ctx, id, f)
			require.NoError(t, err)
			assert.Equal(t, Filter(events, f), got, "sql and in-memory filters disagree")
		})
	}

	got, err := s.QueryTrace(ctx, id, queryir.Equals{Field: "key", Value: "k"})
	require.NoError(t, err)
	assert.Equal(t, events[2:], got)
}

func TestQueryTrace_InvalidFilter(t *testing.T) {
	s := createTestStore(t)
	_, err := s.QueryTrace(context.Background(), "r1", queryir.Equals{Field: "run_id", Value: "x"})
	assert.ErrorContains(t, err, "unknown field")
}

func TestFilter(t *testing.T) {
	events := sampleEvents()
	assert.Equal(t, events, Filter(events, nil))
	assert.Equal(t, events[1:3], Filter(events, queryir.Range{Field: "tick", Min: 1, Max: 3}), "both bounds are inclusive")
	assert.Equal(t, events[3:], Filter(events, queryir.Range{Field: "tick", Min: 4, Max: -1}))
	assert.Empty(t, Filter(events, queryir.Equals{Field: "automaton", Value: "gate"}))
	assert.NotNil(t, Filter(nil, nil))
}

func TestTraceEvent_Field(t *testing.T) {
	ev := sampleEvents()[1]
	for field := range queryir.Fields {
		_, ok := ev.Field(field)
		assert.True(t, ok, field)
	}
	_, ok := ev.Field("colour")
	assert.False(t, ok)
}

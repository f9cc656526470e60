package charstream

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/factory"
)

// Journal collects what the built-in actions do.
//
// Thread-safety: Journal is safe for concurrent use.
type Journal struct {
	mu     sync.Mutex
	w      io.Writer
	lines  []string
	counts map[string]int
}

// NewJournal creates a journal. Lines are also written to w when it is not
// nil.
func NewJournal(w io.Writer) *Journal {
	return &Journal{w: w, counts: make(map[string]int)}
}

func (j *Journal) log(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lines = append(j.lines, line)
	if j.w != nil {
		fmt.Fprintln(j.w, line)
	}
}

func (j *Journal) inc(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.counts[name]++
}

// Lines returns the logged lines.
func (j *Journal) Lines() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.lines...)
}

// Count returns the value of counter name.
func (j *Journal) Count(name string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.counts[name]
}

// Counts returns a copy of every counter.
func (j *Journal) Counts() map[string]int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return maps.Clone(j.counts)
}

// Symbols returns a registry with the built-in symbols:
//
//	predicate char:c    the current character is c
//	predicate any       any character (not EOF)
//	predicate end       EOF
//	action    log:label writes "enter|each|leave label on 'c'" to the journal
//	action    count:n   increments counter n on entry
//	spawner   seq:p     child keys parent/p-1, parent/p-2, ...
func Symbols(j *Journal, logger *slog.Logger) *factory.Registry[Input] {
	if logger == nil {
		logger = slog.Default()
	}
	return factory.NewRegistry[Input]().
		RegisterPredicate("char", func(attr string) (automaton.Predicate[Input], error) {
			c, err := ParseChar(attr)
			if err != nil {
				return nil, err
			}
			return automaton.NewPredicate("char:"+string(c), func(in Input, _ string) bool {
				return !in.EOF && in.Char == c
			}), nil
		}).
		RegisterPredicate("any", func(string) (automaton.Predicate[Input], error) {
			return automaton.NewPredicate("any", func(in Input, _ string) bool { return !in.EOF }), nil
		}).
		RegisterPredicate("end", func(string) (automaton.Predicate[Input], error) {
			return automaton.NewPredicate("end", func(in Input, _ string) bool { return in.EOF }), nil
		}).
		RegisterAction("log", func(attr string) (automaton.Action[Input], error) {
			write := func(verb string) func(Input, string) {
				return func(in Input, key string) {
					line := fmt.Sprintf("%s %s on %s", verb, attr, in)
					if key != "" {
						line = "[" + key + "] " + line
					}
					j.log(line)
					logger.Debug("action", "line", line)
				}
			}
			return &automaton.ActionFuncs[Input]{
				Name:   "log:" + attr,
				OnPre:  write("enter"),
				OnEach: write("each"),
				OnPost: write("leave"),
			}, nil
		}).
		RegisterAction("count", func(attr string) (automaton.Action[Input], error) {
			name := strings.TrimSpace(attr)
			if name == "" {
				return nil, fmt.Errorf("counter name required")
			}
			return &automaton.ActionFuncs[Input]{
				Name:  "count:" + name,
				OnPre: func(Input, string) { j.inc(name) },
			}, nil
		}).
		RegisterSpawner("seq", func(attr string) (automaton.Spawner[Input], error) {
			prefix := strings.TrimSpace(attr)
			if prefix == "" {
				prefix = "child"
			}
			return automaton.SequentialKeys[Input](prefix), nil
		})
}

package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/formflow/internal/condition"
	"github.com/gyaneshwarpardhi/formflow/internal/config"
	"github.com/gyaneshwarpardhi/formflow/internal/routing"
)

const testForms = `
version: v1
forms:
  - id: survey
    blocks:
      - {id: q1, type: rating, order_index: 0}
      - {id: q2, type: long_text, order_index: 1}
      - {id: q3, type: short_text, order_index: 2}
      - {id: done, type: thank_you, order_index: 3}
    connections:
      - id: c1
        source: q1
        default_target: q3
        rules:
          - {id: unhappy, target: q2, when: 'rating < 3'}
  - id: loop
    blocks:
      - {id: a, type: short_text, order_index: 0}
      - {id: b, type: short_text, order_index: 1}
    connections:
      - {id: ab, source: a, default_target: b}
      - {id: ba, source: b, default_target: a}
`

var testConf = config.EngineConf{
	SimulateWorkers: 4,
	QueueDepth:      64,
	MaxSteps:        50,
	TimeoutMs:       2000,
	CacheTTLMs:      60000,
}

func testCatalog(t *testing.T, yaml string) *Catalog {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	forms, err := config.BuildAll(cfg)
	require.NoError(t, err)
	return NewCatalog(forms)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	e := New(ctx, testCatalog(t, testForms), testConf)
	t.Cleanup(func() {
		cancel()
		e.Shutdown()
	})
	return e
}

func TestCatalog(t *testing.T) {
	cat := testCatalog(t, testForms)
	assert.Equal(t, 2, cat.Len())
	ids := []string{}
	for _, f := range cat.Forms() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"survey", "loop"}, ids)
	_, ok := cat.Form("missing")
	assert.False(t, ok)
	assert.False(t, cat.LoadedAt().IsZero())
}

func TestEngine_Next(t *testing.T) {
	e := newTestEngine(t)

	d, err := e.Next("survey", "q1", condition.Answer{Value: 2})
	require.NoError(t, err)
	assert.Equal(t, routing.Decision{Next: "q2", Reason: routing.ReasonRule, RuleID: "unhappy"}, d)

	d, err = e.Next("survey", "q1", condition.Answer{Value: 5})
	require.NoError(t, err)
	assert.Equal(t, "q3", d.Next)
	assert.Equal(t, routing.ReasonDefault, d.Reason)

	d, err = e.Next("survey", "q2", condition.Answer{Value: "meh"})
	require.NoError(t, err)
	assert.Equal(t, routing.Decision{Next: "q3", Reason: routing.ReasonSequence}, d)

	d, err = e.Next("survey", "done", condition.Answer{})
	require.NoError(t, err)
	assert.True(t, d.End())

	_, err = e.Next("nope", "q1", condition.Answer{})
	assert.True(t, errors.Is(err, ErrFormNotFound))

	_, err = e.Next("survey", "q9", condition.Answer{})
	assert.True(t, errors.Is(err, ErrBlockNotFound))
}

func TestEngine_Cycles(t *testing.T) {
	e := newTestEngine(t)

	rep, err := e.Cycles("loop")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rep.Cycles)
	assert.Equal(t, map[string]bool{"a": true, "b": true}, rep.Cyclic)

	again, err := e.Cycles("loop")
	require.NoError(t, err)
	assert.Same(t, rep, again, "report is cached")

	clean, err := e.Cycles("survey")
	require.NoError(t, err)
	assert.Empty(t, clean.Cycles)
	assert.False(t, clean.Cyclic["q1"])

	e.SwapCatalog(testCatalog(t, testForms))
	fresh, err := e.Cycles("loop")
	require.NoError(t, err)
	assert.NotSame(t, rep, fresh, "swap invalidates the cache")

	_, err = e.Cycles("nope")
	assert.True(t, errors.Is(err, ErrFormNotFound))
}

func TestEngine_SwapCatalog(t *testing.T) {
	e := newTestEngine(t)
	e.SwapCatalog(NewCatalog(nil))
	assert.Equal(t, 0, e.Catalog().Len())
	_, err := e.Next("survey", "q1", condition.Answer{})
	assert.True(t, errors.Is(err, ErrFormNotFound))
}

func TestEngine_Simulate(t *testing.T) {
	e := newTestEngine(t)

	sim, err := e.Simulate(context.Background(), "survey", Answers{"q1": {Value: 1}})
	require.NoError(t, err)
	assert.NotEmpty(t, sim.ID)
	assert.Equal(t, "survey", sim.FormID)
	assert.Equal(t, []string{"q1", "q2", "q3", "done"}, sim.Path.Blocks())
	assert.Equal(t, routing.ReasonEnd, sim.Path.Stopped)

	loop, err := e.Simulate(context.Background(), "loop", nil)
	require.NoError(t, err)
	assert.Equal(t, routing.ReasonRevisit, loop.Path.Stopped)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Simulate(ctx, "survey", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_SimulateBatch(t *testing.T) {
	e := newTestEngine(t)

	batch := []Answers{
		{"q1": {Value: 1}},
		{"q1": {Value: 5}},
		{"q1": {Value: "2"}},
		nil,
	}
	sims, err := e.SimulateBatch(context.Background(), "survey", batch)
	require.NoError(t, err)
	require.Len(t, sims, 4)

	assert.Equal(t, []string{"q1", "q2", "q3", "done"}, sims[0].Path.Blocks())
	assert.Equal(t, []string{"q1", "q3", "done"}, sims[1].Path.Blocks())
	assert.Equal(t, []string{"q1", "q2", "q3", "done"}, sims[2].Path.Blocks())
	assert.Equal(t, []string{"q1", "q3", "done"}, sims[3].Path.Blocks())

	seen := map[string]bool{}
	for _, s := range sims {
		assert.False(t, seen[s.ID], "ids are unique")
		seen[s.ID] = true
	}

	_, err = e.SimulateBatch(context.Background(), "nope", batch)
	assert.ErrorIs(t, err, ErrFormNotFound)
}

// stalledEngine has a pool without workers, so queued jobs are never processed.
func stalledEngine(t *testing.T, queueDepth, timeoutMs int) *Engine {
	t.Helper()
	conf := testConf
	conf.QueueDepth = queueDepth
	conf.TimeoutMs = timeoutMs
	e := New(context.Background(), testCatalog(t, testForms), conf)
	e.pool.Drain()
	e.pool = newWorkerPool[*simWork, *Simulation](context.Background(), 0, queueDepth,
		func(ctx context.Context, w *simWork) (*Simulation, error) { return e.simulate(w), nil })
	return e
}

func TestEngine_SimulateBatch_QueueFull(t *testing.T) {
	e := stalledEngine(t, 1, 1000)
	_, err := e.SimulateBatch(context.Background(), "survey", []Answers{nil, nil, nil})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.InDelta(t, 1.0, e.QueueUtilization(), 0.001)
}

func TestEngine_SimulateBatch_Timeout(t *testing.T) {
	e := stalledEngine(t, 4, 20)
	_, err := e.SimulateBatch(context.Background(), "survey", []Answers{nil})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestEngine_SimulateBatch_ContextCancelled(t *testing.T) {
	e := stalledEngine(t, 4, 5000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.SimulateBatch(ctx, "survey", []Answers{nil})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Shutdown(t *testing.T) {
	e := New(context.Background(), testCatalog(t, testForms), testConf)
	assert.Equal(t, 0.0, e.QueueUtilization())
	e.Shutdown()
	e.Shutdown()

	_, err := e.SimulateBatch(context.Background(), "survey", []Answers{nil})
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestEngine_Apply(t *testing.T) {
	e := newTestEngine(t)

	bad, err := config.Parse([]byte("forms: []"))
	require.NoError(t, err)
	_, err = e.Apply(bad)
	assert.Error(t, err)
	assert.Equal(t, 2, e.Catalog().Len(), "invalid config keeps the current catalog")

	good, err := config.Parse([]byte(`
version: v1
forms:
  - id: only
    blocks:
      - {id: q1, type: email, order_index: 0}
`))
	require.NoError(t, err)
	cat, err := e.Apply(good)
	require.NoError(t, err)
	assert.Same(t, cat, e.Catalog())
	_, ok := cat.Form("only")
	assert.True(t, ok)
}

func TestWorkerPool_SkipsDoneJobs(t *testing.T) {
	var processed atomic.Int32
	p := newWorkerPool[int, int](context.Background(), 2, 8, func(ctx context.Context, n int) (int, error) {
		processed.Add(1)
		return n * 2, nil
	})
	defer p.Drain()

	results := make(chan jobResult[int], 2)
	require.True(t, p.Submit(context.Background(), 21, results))
	done, cancel := context.WithCancel(context.Background())
	cancel()
	require.True(t, p.Submit(done, 5, results))

	got := map[bool]jobResult[int]{}
	for i := 0; i < 2; i++ {
		res := <-results
		got[res.err == nil] = res
	}
	assert.Equal(t, 42, got[true].value)
	assert.ErrorIs(t, got[false].err, context.Canceled)
	assert.Equal(t, int32(1), processed.Load())
}

func TestEngine_Cycles_CoversShadowedConnections(t *testing.T) {
	cat := testCatalog(t, `
version: v1
forms:
  - id: shadow
    blocks:
      - {id: a, type: short_text, order_index: 0}
      - {id: b, type: short_text, order_index: 1}
    connections:
      - {id: c1, source: a, default_target: b}
      - {id: c0, source: b, order_index: 0}
      - {id: c2, source: b, default_target: a, order_index: 1}
`)
	e := New(context.Background(), cat, testConf)
	t.Cleanup(e.Shutdown)

	f, ok := cat.Form("shadow")
	require.True(t, ok)
	require.Nil(t, f.Graph.Connection("b").DefaultTargetID, "routing uses the lowest order_index")

	rep, err := e.Cycles("shadow")
	require.NoError(t, err)
	assert.Equal(t, f.Repair.Cycles, rep.Cycles)
	assert.Equal(t, [][]string{{"a", "b"}}, rep.Cycles)
	assert.Equal(t, map[string]bool{"a": true, "b": true}, rep.Cyclic)
}

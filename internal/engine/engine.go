package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/formflow/internal/condition"
	"github.com/gyaneshwarpardhi/formflow/internal/config"
	"github.com/gyaneshwarpardhi/formflow/internal/formcache"
	"github.com/gyaneshwarpardhi/formflow/internal/integrity"
	"github.com/gyaneshwarpardhi/formflow/internal/metrics"
	"github.com/gyaneshwarpardhi/formflow/internal/routing"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

var (
	ErrFormNotFound  = errors.New("form not found")
	ErrBlockNotFound = errors.New("block not found")
	ErrQueueFull     = errors.New("simulation queue full")
	ErrTimeout       = errors.New("simulation timeout")
	ErrShuttingDown  = errors.New("engine shutting down")
)

// Answers maps block ids to the respondent's answers.
type Answers map[string]condition.Answer

// Simulation is the path one respondent would take through a form.
type Simulation struct {
	ID         string       `json:"id"`
	FormID     string       `json:"form_id"`
	Path       routing.Path `json:"path"`
	DurationMs int64        `json:"duration_ms"`
}

// CycleReport lists the blocks of a form that lie on a cycle.
type CycleReport struct {
	FormID string          `json:"form_id"`
	Cyclic map[string]bool `json:"cyclic"`
	Cycles [][]string      `json:"cycles"`
}

// Engine routes respondents through the forms of the current catalog.
type Engine struct {
	catalog atomic.Pointer[Catalog]
	pool    *workerPool[*simWork, *Simulation]
	cycles  *formcache.Cache[string, *CycleReport]
	conf    *config.EngineConf

	mu     sync.RWMutex // guards closed against Submit racing Drain
	closed bool
}

type simWork struct {
	id      string
	formID  string
	graph   *workflow.Graph
	answers Answers
}

// New creates an Engine using conf and starts the simulation pool.
func New(ctx context.Context, cat *Catalog, conf config.EngineConf) *Engine {
	e := &Engine{
		conf:   &conf,
		cycles: formcache.New[string, *CycleReport](time.Duration(conf.CacheTTLMs) * time.Millisecond),
	}
	e.catalog.Store(cat)

	workers := max(conf.SimulateWorkers, 1)
	e.pool = newWorkerPool[*simWork, *Simulation](
		ctx,
		workers,
		max(conf.QueueDepth, 1),
		func(ctx context.Context, w *simWork) (*Simulation, error) {
			return e.simulate(w), nil
		},
	)
	return e
}

// SwapCatalog atomically replaces the catalog (used on hot-reload) and drops
// cached reports of the previous one.
func (e *Engine) SwapCatalog(cat *Catalog) {
	e.catalog.Store(cat)
	e.cycles.InvalidateAll()
}

// Catalog returns the current catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog.Load()
}

func (e *Engine) form(formID string) (*config.Form, error) {
	f, ok := e.catalog.Load().Form(formID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, formID)
	}
	return f, nil
}

// Next resolves the block that follows sourceID for the given answer.
func (e *Engine) Next(formID, sourceID string, ans condition.Answer) (routing.Decision, error) {
	f, err := e.form(formID)
	if err != nil {
		return routing.Decision{}, err
	}
	if !f.Graph.HasBlock(sourceID) {
		return routing.Decision{}, fmt.Errorf("%w: %s in form %s", ErrBlockNotFound, sourceID, formID)
	}
	d := routing.Next(f.Graph, sourceID, ans)
	metrics.RoutingDecisions.WithLabelValues(formID, string(d.Reason)).Inc()
	slog.Debug("routed", "form_id", formID, "source_id", sourceID, "next", d.Next, "reason", d.Reason, "rule_id", d.RuleID)
	return d, nil
}

// Cycles reports the cyclic blocks of a form. The report comes from the repair
// run at build time, so it covers every repaired connection, including those
// the routing graph shadows with a lower order_index. Reports are cached until
// the catalog is swapped or the cache TTL expires.
func (e *Engine) Cycles(formID string) (*CycleReport, error) {
	f, err := e.form(formID)
	if err != nil {
		return nil, err
	}
	return e.cycles.GetOrCompute(formID, func() *CycleReport {
		if f.Repair == nil {
			blocks, conns := f.Graph.Blocks(), f.Graph.Connections()
			return &CycleReport{
				FormID: formID,
				Cyclic: integrity.DetectCycles(blocks, conns),
				Cycles: integrity.Cycles(blocks, conns),
			}
		}
		cyclic := make(map[string]bool, len(f.Repair.Cyclic))
		for id, on := range f.Repair.Cyclic {
			cyclic[id] = on
		}
		cycles := make([][]string, len(f.Repair.Cycles))
		for i, comp := range f.Repair.Cycles {
			cycles[i] = append([]string(nil), comp...)
		}
		return &CycleReport{FormID: formID, Cyclic: cyclic, Cycles: cycles}
	}), nil
}

// Simulate walks a form synchronously with the given answers.
func (e *Engine) Simulate(ctx context.Context, formID string, answers Answers) (*Simulation, error) {
	f, err := e.form(formID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.simulate(&simWork{id: uuid.New().String(), formID: formID, graph: f.Graph, answers: answers}), nil
}

// SimulateBatch walks a form once per answer set on the worker pool and
// returns the simulations in input order. It fails with ErrQueueFull when the
// pool cannot take the whole batch, and with ErrTimeout when results do not
// arrive within the configured timeout. Jobs left in the queue after a
// failure are skipped by the workers.
func (e *Engine) SimulateBatch(ctx context.Context, formID string, batch []Answers) ([]*Simulation, error) {
	f, err := e.form(formID)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(e.conf.TimeoutMs) * time.Millisecond
	bctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultC := make(chan jobResult[*Simulation], len(batch))
	index, err := e.submitBatch(bctx, formID, f.Graph, batch, resultC)
	if err != nil {
		return nil, err
	}

	out := make([]*Simulation, len(batch))
	for range batch {
		select {
		case res := <-resultC:
			if res.err != nil {
				return nil, batchErr(ctx, res.err, timeout)
			}
			out[index[res.value.ID]] = res.value
		case <-bctx.Done():
			return nil, batchErr(ctx, bctx.Err(), timeout)
		}
	}
	return out, nil
}

// batchErr reports a deadline hit by the batch itself as ErrTimeout; errors
// of the caller's context pass through.
func batchErr(parent context.Context, err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}
	return err
}

func (e *Engine) submitBatch(ctx context.Context, formID string, g *workflow.Graph, batch []Answers, resultC chan jobResult[*Simulation]) (map[string]int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrShuttingDown
	}
	index := make(map[string]int, len(batch))
	for i, answers := range batch {
		w := &simWork{id: uuid.New().String(), formID: formID, graph: g, answers: answers}
		index[w.id] = i
		if !e.pool.Submit(ctx, w, resultC) {
			metrics.SimulationsDropped.Add(float64(len(batch) - i))
			return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.pool.QueueCap())
		}
	}
	return index, nil
}

func (e *Engine) simulate(w *simWork) *Simulation {
	start := time.Now()
	path := routing.Walk(w.graph, w.answers, e.conf.MaxSteps)
	metrics.Simulations.WithLabelValues(string(path.Stopped)).Inc()
	return &Simulation{
		ID:         w.id,
		FormID:     w.formID,
		Path:       path,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Shutdown drains the simulation pool gracefully.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.pool.Drain()
}

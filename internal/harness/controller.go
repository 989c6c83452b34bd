package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/regcompat/internal/contract"
	"github.com/roach88/regcompat/internal/fixture"
	"github.com/roach88/regcompat/internal/registry"
	"github.com/roach88/regcompat/internal/report"
)

// Mode selects what the controller does with fixtures. It is fixed for a
// run.
type Mode int

const (
	// ModeVerify evaluates live responses and, when a fixture store is
	// configured, diffs them against the recorded fixtures.
	ModeVerify Mode = iota

	// ModeGenerate evaluates live responses and records them as the new
	// fixtures of each scenario.
	ModeGenerate
)

// String returns "verify" or "generate".
func (m Mode) String() string {
	if m == ModeGenerate {
		return "generate"
	}
	return "verify"
}

// Clock stamps captured fixtures.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewRunID returns a time-ordered UUIDv7 identifying one run.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Controller runs a list of scenarios with bounded concurrency and
// aggregates their results in declaration order.
type Controller struct {
	runner  *Runner
	mode    Mode
	store   fixture.Store
	workers int
	clock   Clock
	runID   string
	logger  *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithWorkers bounds how many scenarios run at once. Values below 1 mean 1.
func WithWorkers(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithFixtures enables fixture capture or diffing against store.
func WithFixtures(store fixture.Store) ControllerOption {
	return func(c *Controller) {
		c.store = store
	}
}

// WithClock replaces the clock stamping captured fixtures.
func WithClock(clock Clock) ControllerOption {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithRunID replaces the generated run id.
func WithRunID(id string) ControllerOption {
	return func(c *Controller) {
		c.runID = id
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController creates a Controller.
func NewController(runner *Runner, mode Mode, opts ...ControllerOption) *Controller {
	c := &Controller{
		runner:  runner,
		mode:    mode,
		workers: 1,
		clock:   systemClock{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runID == "" {
		c.runID = NewRunID()
	}
	return c
}

// RunID returns the id stamped on fixtures captured by this controller.
func (c *Controller) RunID() string {
	return c.runID
}

type slot struct {
	result report.ScenarioResult
	err    error
}

// Run executes scenarios and returns the aggregated report.
//
// Each scenario writes only its own slot, and the report is assembled in
// declaration order once every worker is done. When ctx is canceled no
// further scenarios start; those that never started are reported with a
// canceled outcome and Run returns ctx.Err() alongside the report. An
// *InternalError from any scenario is returned instead of a report.
func (c *Controller) Run(ctx context.Context, scenarios []Scenario) (*report.Report, error) {
	if err := checkContracts(scenarios); err != nil {
		return nil, err
	}
	c.logger.Info("run started",
		"mode", c.mode.String(),
		"scenarios", len(scenarios),
		"workers", c.workers,
		"run_id", c.runID,
	)

	slots := make([]slot, len(scenarios))
	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup

	for i, sc := range scenarios {
		select {
		case <-ctx.Done():
			slots[i].result = notStarted(sc)
			continue
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			slots[i].result = notStarted(sc)
			continue
		}
		wg.Add(1)
		go func(i int, sc Scenario) {
			defer wg.Done()
			defer func() { <-sem }()
			slots[i].result, slots[i].err = c.runScenario(ctx, sc)
		}(i, sc)
	}
	wg.Wait()

	rep := report.New()
	for _, s := range slots {
		if s.err != nil {
			return nil, s.err
		}
		rep.Add(s.result)
	}
	c.logger.Info("run finished",
		"total", rep.Total,
		"passed", rep.Passed,
		"failed", rep.Failed,
	)
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

// checkContracts rejects a plan that asks for a contract the engine does not
// have, before any request is sent.
func checkContracts(scenarios []Scenario) error {
	for _, sc := range scenarios {
		for _, it := range sc.Interactions {
			if contract.Supports(it.Input.Endpoint, it.Input.Case) {
				continue
			}
			return &InternalError{Scenario: sc.Name, Err: &contract.InvariantError{
				Endpoint: it.Input.Endpoint,
				Case:     it.Input.Case,
				Message:  "no contract for variant " + it.Variant,
			}}
		}
	}
	return nil
}

func notStarted(sc Scenario) report.ScenarioResult {
	return report.ScenarioResult{
		Name:     sc.Name,
		Endpoint: sc.Endpoint,
		State:    string(StatePending),
		Outcomes: []contract.Outcome{
			contract.Failed(contract.CategoryCanceled, "scenario runs", "run was canceled before the scenario started"),
		},
	}
}

func (c *Controller) runScenario(ctx context.Context, sc Scenario) (report.ScenarioResult, error) {
	result, exchanges, err := c.runner.Run(ctx, sc)
	if err != nil {
		return result, err
	}
	if c.store == nil || sc.Endpoint == registry.EndpointCreatePackageRelease {
		return result, nil
	}
	// A scenario that failed setup sent no requests; its recorded fixtures
	// stay as they are.
	if result.State == string(StateFailed) {
		return result, nil
	}

	switch c.mode {
	case ModeGenerate:
		if err := c.record(ctx, sc, exchanges); err != nil {
			result.Outcomes = append(result.Outcomes,
				contract.Failed(contract.CategoryFixture, "fixtures are recorded", err.Error()))
		}
	case ModeVerify:
		outcomes, err := c.diff(ctx, sc, exchanges)
		if err != nil {
			outcomes = append(outcomes, contract.Failed(contract.CategoryFixture, "fixtures are loaded", err.Error()))
		}
		result.Outcomes = append(result.Outcomes, outcomes...)
	}
	return result, nil
}

func (c *Controller) capture(sc Scenario, exchanges []Exchange) []fixture.Fixture {
	headers := contract.FixtureHeaders(sc.Endpoint)
	out := make([]fixture.Fixture, 0, len(exchanges))
	for _, ex := range exchanges {
		f := fixture.Capture(sc.Name, ex.Variant, ex.Request, ex.Response, headers)
		f.RunID = c.runID
		f.CapturedAt = c.clock.Now()
		out = append(out, f)
	}
	return out
}

func (c *Controller) record(ctx context.Context, sc Scenario, exchanges []Exchange) error {
	fixtures := c.capture(sc, exchanges)
	if err := c.store.ReplaceScenario(ctx, sc.Name, fixtures); err != nil {
		return err
	}
	c.logger.Debug("fixtures recorded", "scenario", sc.Name, "count", len(fixtures))
	return nil
}

// diff compares live exchanges with the recorded fixtures. Every live
// variant yields one outcome, and every recorded variant without a live
// counterpart yields a failing one.
func (c *Controller) diff(ctx context.Context, sc Scenario, exchanges []Exchange) ([]contract.Outcome, error) {
	recorded, err := c.store.LoadScenario(ctx, sc.Name)
	if err != nil {
		return nil, err
	}
	byVariant := make(map[string]fixture.Fixture, len(recorded))
	for _, f := range recorded {
		byVariant[f.Variant] = f
	}

	var outcomes []contract.Outcome
	seen := map[string]bool{}
	for _, live := range c.capture(sc, exchanges) {
		seen[live.Variant] = true
		desc := live.Variant + ": response matches fixture"
		want, ok := byVariant[live.Variant]
		if !ok {
			outcomes = append(outcomes, contract.Failed(contract.CategoryFixture, desc, "no fixture recorded"))
			continue
		}
		diffs := fixture.Compare(want, live)
		if len(diffs) == 0 {
			outcomes = append(outcomes, contract.Outcome{Description: desc, Passed: true, Category: contract.CategoryFixture})
			continue
		}
		parts := make([]string, len(diffs))
		for i, d := range diffs {
			parts[i] = d.String()
		}
		outcomes = append(outcomes, contract.Failed(contract.CategoryFixture, desc, strings.Join(parts, "; ")))
	}

	var missing []string
	for v := range byVariant {
		if !seen[v] {
			missing = append(missing, v)
		}
	}
	sort.Strings(missing)
	for _, v := range missing {
		outcomes = append(outcomes, contract.Failed(contract.CategoryFixture,
			v+": fixture is replayed", fmt.Sprintf("no live exchange for recorded variant %s", v)))
	}
	return outcomes, nil
}

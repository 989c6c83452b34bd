package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/regcompat/internal/contract"
	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/provision"
	"github.com/roach88/regcompat/internal/report"
)

// Runner executes scenarios one at a time. A Runner holds no per-scenario
// state and may run several scenarios concurrently.
type Runner struct {
	prober       probe.Prober
	provisioner  provision.Provisioner
	credentials  *ident.AuthToken
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCredentials authenticates every request.
func WithCredentials(token *ident.AuthToken) RunnerOption {
	return func(r *Runner) {
		r.credentials = token
	}
}

// WithProcessing sets how asynchronous publications are polled.
func WithProcessing(interval, maxWait time.Duration) RunnerOption {
	return func(r *Runner) {
		if interval > 0 {
			r.pollInterval = interval
		}
		if maxWait > 0 {
			r.maxWait = maxWait
		}
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a Runner. provisioner may be provision.Nop{} when the
// registry is already populated.
func NewRunner(prober probe.Prober, provisioner provision.Provisioner, opts ...RunnerOption) *Runner {
	r := &Runner{
		prober:       prober,
		provisioner:  provisioner,
		pollInterval: provision.DefaultPollInterval,
		maxWait:      provision.DefaultMaxProcessingTime,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// execution is the mutable state of one scenario run.
type execution struct {
	scenario  Scenario
	state     State
	outcomes  []contract.Outcome
	responses map[string]*probe.Response
	exchanges []Exchange
	followUps map[string]*probe.Response
}

func (x *execution) transition(to State) {
	x.state = to
}

func (x *execution) fail(category contract.Category, description, detail string) {
	x.outcomes = append(x.outcomes, contract.Failed(category, description, detail))
}

func (x *execution) result() report.ScenarioResult {
	return report.ScenarioResult{
		Name:     x.scenario.Name,
		Endpoint: x.scenario.Endpoint,
		State:    string(x.state),
		Outcomes: x.outcomes,
	}
}

// Run executes sc and returns its result together with every exchange that
// produced a response, in request order. The error is non-nil only for an
// *InternalError; everything the registry does wrong is an outcome.
func (r *Runner) Run(ctx context.Context, sc Scenario) (report.ScenarioResult, []Exchange, error) {
	x := &execution{
		scenario:  sc,
		state:     StatePending,
		responses: map[string]*probe.Response{},
		followUps: map[string]*probe.Response{},
	}
	logger := r.logger.With("scenario", sc.Name)
	start := time.Now()

	x.transition(StateSettingUp)
	if !r.setUp(ctx, x) {
		x.transition(StateFailed)
		logger.Debug("setup failed", "duration", time.Since(start))
		return x.result(), nil, nil
	}

	x.transition(StateRequesting)
	r.request(ctx, x, logger)

	x.transition(StateEvaluating)
	if err := r.evaluate(x); err != nil {
		x.transition(StateFailed)
		return x.result(), x.exchanges, &InternalError{Scenario: sc.Name, Err: err}
	}

	x.transition(StateCompleted)
	logger.Debug("scenario finished",
		"outcomes", len(x.outcomes),
		"duration", time.Since(start),
	)
	return x.result(), x.exchanges, nil
}

// setUp provisions every setup release and records each failure. It
// reports whether all of them succeeded.
func (r *Runner) setUp(ctx context.Context, x *execution) bool {
	ok := true
	for _, rel := range x.scenario.Setup {
		if err := r.provisioner.EnsureRelease(ctx, rel); err != nil {
			x.fail(contract.CategorySetup, rel.Release.String()+": release is provisioned", err.Error())
			ok = false
		}
	}
	return ok
}

func (r *Runner) request(ctx context.Context, x *execution, logger *slog.Logger) {
	for _, it := range x.scenario.Interactions {
		subject := it.Input.Subject
		req := it.Request
		if it.Publish != nil {
			built, err := r.publishRequest(it)
			if err != nil {
				x.fail(contract.CategorySetup, subject+": publication is prepared", err.Error())
				continue
			}
			req = built
		}
		if req.Credentials == nil {
			req.Credentials = r.credentials
		}

		start := time.Now()
		resp, err := r.prober.Send(ctx, req)
		if err != nil {
			x.fail(transportCategory(err), subject+": request succeeds", err.Error())
			logger.Debug("request failed", "variant", it.Variant, "error", err)
			continue
		}
		logger.Debug("request",
			"variant", it.Variant,
			"status", resp.StatusCode,
			"duration", time.Since(start),
		)
		x.responses[it.Variant] = resp
		x.exchanges = append(x.exchanges, Exchange{Variant: it.Variant, Request: req, Response: resp})

		if it.AwaitProcessing && resp.StatusCode == http.StatusAccepted {
			r.awaitProcessing(ctx, x, it, resp, logger)
		}
	}
}

func (r *Runner) publishRequest(it Interaction) (probe.Request, error) {
	p := it.Publish
	rel, err := provision.LoadRelease(p.PackageRelease, p.SourceArchivePath, p.MetadataPath)
	if err != nil {
		return probe.Request{}, err
	}
	return provision.PublishRequest(rel, r.credentials)
}

// awaitProcessing follows an accepted publication. A missing Location is
// left to the publish contract.
func (r *Runner) awaitProcessing(ctx context.Context, x *execution, it Interaction, accepted *probe.Response, logger *slog.Logger) {
	location, ok := accepted.Location()
	if !ok {
		return
	}
	start := time.Now()
	final, err := provision.AwaitProcessing(ctx, r.prober, location, r.credentials, r.pollInterval, r.maxWait)
	if err != nil {
		category := transportCategory(err)
		if errors.Is(err, provision.ErrProcessingTimeout) {
			category = contract.CategoryAssertion
		}
		x.fail(category, it.Input.Subject+": processing finishes", err.Error())
		return
	}
	logger.Debug("processing finished",
		"variant", it.Variant,
		"status", final.StatusCode,
		"duration", time.Since(start),
	)
	x.followUps[it.Variant] = final
}

func (r *Runner) evaluate(x *execution) error {
	for _, it := range x.scenario.Interactions {
		resp, ok := x.responses[it.Variant]
		if !ok {
			continue
		}
		in := it.Input
		if it.Baseline != "" {
			in.Baseline = x.responses[it.Baseline]
		}
		outcomes, err := contract.Evaluate(in, resp)
		if err != nil {
			return fmt.Errorf("variant %s: %w", it.Variant, err)
		}
		x.outcomes = append(x.outcomes, outcomes...)

		if final, ok := x.followUps[it.Variant]; ok {
			in.Case = contract.CaseProcessing
			outcomes, err := contract.Evaluate(in, final)
			if err != nil {
				return fmt.Errorf("variant %s: %w", it.Variant, err)
			}
			x.outcomes = append(x.outcomes, outcomes...)
		}
	}
	return nil
}

func transportCategory(err error) contract.Category {
	var te *probe.TransportError
	if errors.As(err, &te) && te.Kind == probe.KindCanceled {
		return contract.CategoryCanceled
	}
	if errors.Is(err, context.Canceled) {
		return contract.CategoryCanceled
	}
	return contract.CategoryTransport
}

package harness

import (
	"errors"
	"fmt"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/contract"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/provision"
	"github.com/roach88/regcompat/internal/registry"
)

// State is the lifecycle state of a scenario.
type State string

const (
	StatePending    State = "pending"
	StateSettingUp  State = "setting-up"
	StateRequesting State = "requesting"
	StateEvaluating State = "evaluating"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Scenario is one endpoint's checks: releases to provision first, then an
// ordered list of interactions.
type Scenario struct {
	Name         string
	Endpoint     registry.Endpoint
	Setup        []provision.Release
	Interactions []Interaction
}

// Interaction is one request and the contract its response is judged by.
type Interaction struct {
	// Variant names the interaction uniquely within its scenario, e.g.
	// "known/mona.LinkedList@1.1.1". Fixtures are keyed by it.
	Variant string

	Request probe.Request

	// Publish, when set, builds Request as the multipart publication of
	// this release at request time.
	Publish *config.PublishRelease

	Input contract.Input

	// Baseline names an earlier variant whose response becomes
	// Input.Baseline.
	Baseline string

	// AwaitProcessing follows a 202 response to its terminal status and
	// evaluates it with the processing contract.
	AwaitProcessing bool
}

// Exchange is a request with the response it received.
type Exchange struct {
	Variant  string
	Request  probe.Request
	Response *probe.Response
}

// InternalError is an engine defect detected while running a scenario. It
// aborts the run.
type InternalError struct {
	Scenario string
	Err      error
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in scenario %q: %v", e.Scenario, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsInternalError returns true if err is or wraps an *InternalError.
func IsInternalError(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

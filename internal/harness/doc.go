// Package harness runs conformance scenarios against a registry.
//
// A configuration is turned into an ordered list of scenarios by Plan, one
// per configured endpoint. Each scenario is executed by a Runner through a
// fixed sequence of states:
//
//	Pending -> SettingUp -> Requesting -> Evaluating -> Completed
//
// with Failed reachable from any state. Setup provisions the releases the
// scenario reads; Requesting issues every interaction in order, following
// asynchronous publications until they finish; Evaluating hands each
// response to the contract library.
//
// # Failure scoping
//
// Setup failures, transport failures and contract violations are recorded
// as failing outcomes of the scenario they occur in, and the run moves on.
// Only an engine defect, surfaced as *InternalError, aborts the run.
//
// # Fixtures
//
// The Controller optionally records every exchange as a fixture (Generate
// mode) or diffs live exchanges against recorded fixtures (Verify mode).
// Publication is not idempotent, so the create scenario is never captured.
//
// # Usage
//
//	scenarios := harness.Plan(cfg, provisions)
//	runner := harness.NewRunner(client, provision.Nop{})
//	ctrl := harness.NewController(runner, harness.ModeVerify, harness.WithWorkers(4))
//	rep, err := ctrl.Run(ctx, scenarios)
package harness

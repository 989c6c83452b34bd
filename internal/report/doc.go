// Package report aggregates scenario outcomes into a run report and renders
// it.
//
// Results are added in scenario declaration order, never completion order,
// so the rendered text of two runs against the same registry is identical
// regardless of how many workers executed them. The run passes iff every
// outcome of every scenario passed.
//
// Text output carries one line per scenario, either
//
//	<Scenario Name> - All tests passed.
//
// or
//
//	<Scenario Name> - <n> of <m> tests failed.
//
// followed by the failing outcomes and a closing summary line.
package report

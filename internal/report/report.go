package report

import (
	"github.com/roach88/regcompat/internal/contract"
	"github.com/roach88/regcompat/internal/registry"
)

// ScenarioResult is the outcome list of one scenario.
type ScenarioResult struct {
	Name     string             `json:"name"`
	Endpoint registry.Endpoint  `json:"endpoint"`
	State    string             `json:"state"`
	Outcomes []contract.Outcome `json:"outcomes"`
}

// Passed counts the passing outcomes.
func (s ScenarioResult) Passed() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Passed {
			n++
		}
	}
	return n
}

// Failures returns the failing outcomes in order.
func (s ScenarioResult) Failures() []contract.Outcome {
	var out []contract.Outcome
	for _, o := range s.Outcomes {
		if !o.Passed {
			out = append(out, o)
		}
	}
	return out
}

// Pass reports whether every outcome passed.
func (s ScenarioResult) Pass() bool {
	return s.Passed() == len(s.Outcomes)
}

// Report is the aggregated result of a run.
type Report struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Pass      bool             `json:"pass"`
}

// New returns an empty report.
func New() *Report {
	return &Report{Scenarios: []ScenarioResult{}, Pass: true}
}

// Add appends a scenario result and updates the counts.
func (r *Report) Add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Summarize()
}

// Summarize recomputes the counts from the scenario results.
func (r *Report) Summarize() {
	r.Total, r.Passed, r.Failed = 0, 0, 0
	for _, s := range r.Scenarios {
		p := s.Passed()
		r.Total += len(s.Outcomes)
		r.Passed += p
		r.Failed += len(s.Outcomes) - p
	}
	r.Pass = r.Failed == 0
}

// Failure is a failing outcome with the scenario it belongs to.
type Failure struct {
	Scenario string
	Outcome  contract.Outcome
}

// Failures lists every failing outcome in report order.
func (r *Report) Failures() []Failure {
	var out []Failure
	for _, s := range r.Scenarios {
		for _, o := range s.Failures() {
			out = append(out, Failure{Scenario: s.Name, Outcome: o})
		}
	}
	return out
}

// FailedScenarios counts the scenarios with at least one failing outcome.
func (r *Report) FailedScenarios() int {
	n := 0
	for _, s := range r.Scenarios {
		if !s.Pass() {
			n++
		}
	}
	return n
}

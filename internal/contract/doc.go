// Package contract encodes the registry API contract as executable checks.
//
// Each endpoint has one evaluator per Case (known release, unknown release,
// tool-version variants, publication). Evaluators are pure: they take an
// Input describing what was requested and what is expected, plus the
// captured response, and return one Outcome per checked property. Every
// check runs even after an earlier one failed, so a single response
// surfaces all of its violations.
//
// Evaluate returns an error only for defects in the caller: an endpoint or
// case with no evaluator, or an expectation of the wrong type. Those are
// *InvariantError values and are never caused by the registry under test.
package contract

package contract

import (
	"errors"
	"fmt"

	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/registry"
)

// Case selects the variant of an endpoint's contract.
type Case string

const (
	CaseKnown          Case = "known"
	CaseUnknown        Case = "unknown"
	CaseSwiftVersion   Case = "swift-version"
	CaseNoSwiftVersion Case = "no-swift-version"
	CasePublish        Case = "publish"
	CaseDuplicate      Case = "duplicate"
	CaseProcessing     Case = "processing"
)

// Category classifies an Outcome by where it came from.
type Category string

const (
	CategoryAssertion Category = "assertion"
	CategoryTransport Category = "transport"
	CategorySetup     Category = "setup"
	CategoryFixture   Category = "fixture"
	CategoryCanceled  Category = "canceled"
)

// Outcome is the result of one checked property.
type Outcome struct {
	Description string   `json:"description"`
	Passed      bool     `json:"passed"`
	Detail      string   `json:"detail,omitempty"`
	Category    Category `json:"category"`
}

// Failed returns a failing outcome of the given category.
func Failed(category Category, description, detail string) Outcome {
	return Outcome{Description: description, Detail: detail, Category: category}
}

// Input is what an evaluator needs besides the response.
type Input struct {
	Endpoint registry.Endpoint
	Case     Case

	// Subject prefixes every outcome description, typically the release
	// or URL under test.
	Subject string

	// Expect is the case-specific expectation, e.g. ManifestExpect.
	Expect any

	// Baseline is a previously captured response the case compares
	// against, such as the unqualified manifest.
	Baseline *probe.Response
}

// Evaluator judges one response.
type Evaluator func(in Input, resp *probe.Response) ([]Outcome, error)

var evaluators = map[registry.Endpoint]map[Case]Evaluator{
	registry.EndpointCreatePackageRelease: {
		CasePublish:    evaluatePublish,
		CaseDuplicate:  evaluateDuplicate,
		CaseProcessing: evaluateProcessing,
	},
	registry.EndpointListPackageReleases: {
		CaseKnown:   evaluateList,
		CaseUnknown: evaluateUnknown,
	},
	registry.EndpointFetchPackageReleaseInfo: {
		CaseKnown:   evaluateInfo,
		CaseUnknown: evaluateUnknown,
	},
	registry.EndpointFetchPackageReleaseManifest: {
		CaseKnown:          evaluateManifest,
		CaseSwiftVersion:   evaluateManifestSwiftVersion,
		CaseNoSwiftVersion: evaluateManifestNoSwiftVersion,
		CaseUnknown:        evaluateUnknown,
	},
	registry.EndpointDownloadSourceArchive: {
		CaseKnown:   evaluateArchive,
		CaseUnknown: evaluateUnknown,
	},
	registry.EndpointLookupPackageIdentifiers: {
		CaseKnown:   evaluateIdentifiers,
		CaseUnknown: evaluateUnknown,
	},
}

// Evaluate runs the contract selected by in.Endpoint and in.Case.
func Evaluate(in Input, resp *probe.Response) ([]Outcome, error) {
	cases, ok := evaluators[in.Endpoint]
	if !ok {
		return nil, &InvariantError{Endpoint: in.Endpoint, Case: in.Case, Message: "no contract for endpoint"}
	}
	eval, ok := cases[in.Case]
	if !ok {
		return nil, &InvariantError{Endpoint: in.Endpoint, Case: in.Case, Message: "no contract for case"}
	}
	if resp == nil {
		return nil, &InvariantError{Endpoint: in.Endpoint, Case: in.Case, Message: "no response to evaluate"}
	}
	return eval(in, resp)
}

// Supports reports whether a contract exists for the endpoint and case.
func Supports(e registry.Endpoint, c Case) bool {
	_, ok := evaluators[e][c]
	return ok
}

// InvariantError reports a defect in the engine, not in the registry under
// test.
type InvariantError struct {
	Endpoint registry.Endpoint
	Case     Case
	Message  string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("contract %s/%s: %s", e.Endpoint, e.Case, e.Message)
}

// IsInvariantError returns true if err is or wraps an *InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// expectation asserts the dynamic type of in.Expect.
func expectation[T any](in Input) (T, error) {
	v, ok := in.Expect.(T)
	if !ok {
		var zero T
		return zero, &InvariantError{
			Endpoint: in.Endpoint,
			Case:     in.Case,
			Message:  fmt.Sprintf("expectation has type %T, want %T", in.Expect, zero),
		}
	}
	return v, nil
}

// FixtureHeaders returns the response headers compared when a live
// response is diffed against its fixture.
func FixtureHeaders(e registry.Endpoint) []string {
	common := []string{registry.HeaderContentType, registry.HeaderContentVersion}
	switch e {
	case registry.EndpointFetchPackageReleaseManifest:
		return append(common, registry.HeaderContentDisposition, registry.HeaderLink)
	case registry.EndpointDownloadSourceArchive:
		return append(common, registry.HeaderContentDisposition, registry.HeaderDigest)
	case registry.EndpointListPackageReleases, registry.EndpointFetchPackageReleaseInfo:
		return append(common, registry.HeaderLink)
	default:
		return common
	}
}

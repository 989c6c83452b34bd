package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/regcompat/internal/contract"
	"github.com/roach88/regcompat/internal/registry"
)

func pass(desc string) contract.Outcome {
	return contract.Outcome{Description: desc, Passed: true, Category: contract.CategoryAssertion}
}

func sampleReport() *Report {
	r := New()
	r.Add(ScenarioResult{
		Name:     registry.EndpointListPackageReleases.Title(),
		Endpoint: registry.EndpointListPackageReleases,
		State:    "completed",
		Outcomes: []contract.Outcome{
			pass("mona.LinkedList: status is 200"),
			pass("mona.LinkedList: Content-Version header is 1"),
		},
	})
	r.Add(ScenarioResult{
		Name:     registry.EndpointFetchPackageReleaseManifest.Title(),
		Endpoint: registry.EndpointFetchPackageReleaseManifest,
		State:    "completed",
		Outcomes: []contract.Outcome{
			pass("mona.LinkedList@1.1.1: status is 200"),
			contract.Failed(contract.CategoryAssertion,
				"mona.LinkedList@1.1.1: Content-Length header matches body size",
				"Content-Length header is missing"),
			contract.Failed(contract.CategoryTransport,
				"mona.LinkedList@1.1.1?swift-version=4.2: request succeeds",
				"TIMEOUT: GET /mona/LinkedList/1.1.1/Package.swift?swift-version=4.2: context deadline exceeded"),
		},
	})
	r.Add(ScenarioResult{
		Name:     registry.EndpointDownloadSourceArchive.Title(),
		Endpoint: registry.EndpointDownloadSourceArchive,
		State:    "failed",
		Outcomes: []contract.Outcome{
			contract.Failed(contract.CategorySetup,
				"mona.LinkedList@1.1.1: release is provisioned",
				"failed to provision mona.LinkedList@1.1.1: publish returned status 500"),
		},
	})
	return r
}

func TestSummarize(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 6, r.Total)
	assert.Equal(t, 3, r.Passed)
	assert.Equal(t, 3, r.Failed)
	assert.False(t, r.Pass)
	assert.Equal(t, 2, r.FailedScenarios())

	failures := r.Failures()
	require.Len(t, failures, 3)
	assert.Equal(t, "Fetch Package Release Manifest", failures[0].Scenario)
	assert.Equal(t, contract.CategorySetup, failures[2].Outcome.Category)
}

func TestEmptyScenarioPasses(t *testing.T) {
	r := New()
	r.Add(ScenarioResult{Name: "Lookup Package Identifiers"})
	assert.True(t, r.Pass)
	assert.True(t, r.Scenarios[0].Pass())
	assert.Equal(t, 0, r.Total)
}

func TestAllPassing(t *testing.T) {
	r := New()
	r.Add(ScenarioResult{Name: "List Package Releases", Outcomes: []contract.Outcome{pass("a"), pass("b")}})
	assert.True(t, r.Pass)
	assert.Equal(t, 2, r.Passed)
	assert.Empty(t, r.Failures())
}

func TestSummarizeIsIdempotent(t *testing.T) {
	r := sampleReport()
	r.Summarize()
	r.Summarize()
	assert.Equal(t, 6, r.Total)
	assert.Equal(t, 3, r.Failed)
}

func TestWriteTextGolden(t *testing.T) {
	AssertGolden(t, "mixed", sampleReport())
}

func TestWriteTextAllPassedGolden(t *testing.T) {
	r := New()
	r.Add(ScenarioResult{Name: "List Package Releases", Outcomes: []contract.Outcome{pass("a"), pass("b")}})
	r.Add(ScenarioResult{Name: "Lookup Package Identifiers", Outcomes: []contract.Outcome{pass("c")}})
	AssertGolden(t, "all_passed", r)
}

func TestWriteTextColorOnPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport(), TextOptions{Color: true}))
	assert.Contains(t, buf.String(), "List Package Releases - All tests passed.")
	assert.Contains(t, buf.String(), "Fetch Package Release Manifest - 2 of 3 tests failed.")
}

func TestReportJSON(t *testing.T) {
	data, err := json.Marshal(sampleReport())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, false, doc["pass"])
	assert.Equal(t, float64(6), doc["total"])
	scenarios := doc["scenarios"].([]any)
	require.Len(t, scenarios, 3)
	first := scenarios[0].(map[string]any)
	assert.Equal(t, "list-package-releases", first["endpoint"])
	outcomes := scenarios[1].(map[string]any)["outcomes"].([]any)
	assert.Equal(t, "transport", outcomes[2].(map[string]any)["category"])
}

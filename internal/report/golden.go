package report

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden renders r as plain text and compares it with
// testdata/golden/<name>.golden relative to the calling test's package.
//
// Run the tests with -update to rewrite the golden files.
func AssertGolden(t *testing.T, name string, r *Report) {
	t.Helper()

	var buf bytes.Buffer
	if err := WriteText(&buf, r, TextOptions{}); err != nil {
		t.Fatalf("render report: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}

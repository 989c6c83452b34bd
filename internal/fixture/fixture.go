package fixture

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/registry"
)

// Fixture is one captured exchange.
type Fixture struct {
	Scenario string
	Variant  string

	Method string
	Path   string

	Status int
	Header http.Header
	Digest string
	Body   []byte

	// RunID identifies the generate run that captured the fixture.
	RunID      string
	CapturedAt time.Time
}

// Key returns "scenario/variant".
func (f Fixture) Key() string {
	return f.Scenario + "/" + f.Variant
}

// Capture builds a fixture from an exchange, keeping only the named
// response headers.
func Capture(scenario, variant string, req probe.Request, resp *probe.Response, headers []string) Fixture {
	kept := http.Header{}
	for _, name := range headers {
		if values := resp.Header.Values(name); len(values) > 0 {
			kept[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
		}
	}
	return Fixture{
		Scenario: scenario,
		Variant:  variant,
		Method:   req.Method,
		Path:     req.Path,
		Status:   resp.StatusCode,
		Header:   kept,
		Digest:   Digest(resp.Header.Get(registry.HeaderContentType), resp.Body),
		Body:     append([]byte(nil), resp.Body...),
	}
}

// Difference is one field where a live exchange departs from its fixture.
type Difference struct {
	Field    string
	Expected string
	Actual   string
}

// String renders "field: expected X, got Y".
func (d Difference) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", d.Field, d.Expected, d.Actual)
}

// Compare returns the differences between a fixture and a live capture of
// the same variant. The request, status, whitelisted headers and body
// digest are compared.
func Compare(want, got Fixture) []Difference {
	var diffs []Difference
	if want.Method != got.Method || want.Path != got.Path {
		diffs = append(diffs, Difference{
			Field:    "request",
			Expected: want.Method + " " + want.Path,
			Actual:   got.Method + " " + got.Path,
		})
	}
	if want.Status != got.Status {
		diffs = append(diffs, Difference{
			Field:    "status",
			Expected: fmt.Sprint(want.Status),
			Actual:   fmt.Sprint(got.Status),
		})
	}
	for _, name := range headerNames(want.Header, got.Header) {
		w := strings.Join(want.Header.Values(name), ", ")
		g := strings.Join(got.Header.Values(name), ", ")
		if w != g {
			diffs = append(diffs, Difference{
				Field:    "header " + name,
				Expected: quoteOrAbsent(w),
				Actual:   quoteOrAbsent(g),
			})
		}
	}
	if want.Digest != got.Digest {
		diffs = append(diffs, Difference{
			Field:    "body",
			Expected: want.Digest,
			Actual:   got.Digest,
		})
	}
	return diffs
}

func headerNames(a, b http.Header) []string {
	seen := map[string]bool{}
	for name := range a {
		seen[http.CanonicalHeaderKey(name)] = true
	}
	for name := range b {
		seen[http.CanonicalHeaderKey(name)] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func quoteOrAbsent(s string) string {
	if s == "" {
		return "(absent)"
	}
	return fmt.Sprintf("%q", s)
}

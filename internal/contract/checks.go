package contract

import (
	"encoding/json"
	"fmt"
	"mime"
	"slices"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/registry"
)

// checker accumulates the outcomes of one evaluation.
type checker struct {
	subject  string
	outcomes []Outcome
}

func newChecker(in Input) *checker {
	return &checker{subject: in.Subject}
}

func (c *checker) record(passed bool, description, detail string) bool {
	if c.subject != "" {
		description = c.subject + ": " + description
	}
	o := Outcome{Description: description, Passed: passed, Category: CategoryAssertion}
	if !passed {
		o.Detail = detail
	}
	c.outcomes = append(c.outcomes, o)
	return passed
}

func (c *checker) pass(description string) {
	c.record(true, description, "")
}

func (c *checker) fail(description, format string, args ...any) {
	c.record(false, description, fmt.Sprintf(format, args...))
}

func (c *checker) result() ([]Outcome, error) {
	return c.outcomes, nil
}

// status checks the response status against the accepted set and records
// the actual code on failure.
func (c *checker) status(resp *probe.Response, accepted ...int) bool {
	desc := fmt.Sprintf("status is %s", statusSet(accepted))
	if slices.Contains(accepted, resp.StatusCode) {
		c.pass(desc)
		return true
	}
	c.fail(desc, "expected %s, got %d", statusSet(accepted), resp.StatusCode)
	return false
}

func statusSet(codes []int) string {
	if len(codes) == 1 {
		return strconv.Itoa(codes[0])
	}
	parts := make([]string, len(codes))
	for i, code := range codes {
		parts[i] = strconv.Itoa(code)
	}
	return "one of " + strings.Join(parts, ", ")
}

func (c *checker) contentVersion(resp *probe.Response) {
	got := resp.Header.Get(registry.HeaderContentVersion)
	desc := "Content-Version header is " + registry.APIVersion
	if got == registry.APIVersion {
		c.pass(desc)
		return
	}
	c.fail(desc, "expected %q, got %q", registry.APIVersion, got)
}

// mediaType compares the Content-Type media type, ignoring parameters.
func (c *checker) mediaType(resp *probe.Response, want string) {
	desc := "Content-Type is " + want
	raw := resp.Header.Get(registry.HeaderContentType)
	if raw == "" {
		c.fail(desc, "Content-Type header is missing")
		return
	}
	got, _, err := mime.ParseMediaType(raw)
	if err != nil {
		c.fail(desc, "invalid Content-Type %q: %v", raw, err)
		return
	}
	if !strings.EqualFold(got, want) {
		c.fail(desc, "expected %q, got %q", want, got)
		return
	}
	c.pass(desc)
}

// contentLength checks that Content-Length is present, numeric and equal
// to the body size.
func (c *checker) contentLength(resp *probe.Response) {
	desc := "Content-Length header matches body size"
	raw := resp.Header.Get(registry.HeaderContentLength)
	if raw == "" {
		c.fail(desc, "Content-Length header is missing")
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.fail(desc, "Content-Length %q is not a number", raw)
		return
	}
	if n != len(resp.Body) {
		c.fail(desc, "expected %d, got %d", len(resp.Body), n)
		return
	}
	c.pass(desc)
}

// contentDisposition checks for a non-empty filename parameter, and for an
// exact filename when want is set.
func (c *checker) contentDisposition(resp *probe.Response, want string) {
	desc := "Content-Disposition header has a filename"
	if want != "" {
		desc = "Content-Disposition filename is " + want
	}
	raw := resp.Header.Get(registry.HeaderContentDisposition)
	if raw == "" {
		c.fail(desc, "Content-Disposition header is missing")
		return
	}
	_, params, err := mime.ParseMediaType(raw)
	if err != nil {
		c.fail(desc, "invalid Content-Disposition %q: %v", raw, err)
		return
	}
	filename := params["filename"]
	switch {
	case filename == "":
		c.fail(desc, "filename parameter is missing or empty in %q", raw)
	case want != "" && filename != want:
		c.fail(desc, "expected %q, got %q", want, filename)
	default:
		c.pass(desc)
	}
}

// links parses the Link header. An unparsable header is a failed outcome;
// an absent header yields no links and no outcome.
func (c *checker) links(resp *probe.Response) []registry.Link {
	values := resp.Header.Values(registry.HeaderLink)
	if len(values) == 0 {
		return nil
	}
	links, err := registry.ParseLinks(values)
	if err != nil {
		c.fail("Link header is well formed", "%v", err)
		return nil
	}
	return links
}

func (c *checker) linkRelation(links []registry.Link, rel string) {
	desc := fmt.Sprintf("Link header has %q relation", rel)
	if len(registry.FindRel(links, rel)) > 0 {
		c.pass(desc)
		return
	}
	c.fail(desc, "relation %q not found among %s", rel, relations(links))
}

func relations(links []registry.Link) string {
	var rels []string
	for _, l := range links {
		rels = append(rels, l.Rel...)
	}
	if len(rels) == 0 {
		return "no relations"
	}
	return "[" + strings.Join(rels, " ") + "]"
}

// problem checks that the body is a problem details document with a
// non-empty detail.
func (c *checker) problem(resp *probe.Response) {
	c.mediaType(resp, registry.ContentTypeProblem)
	c.jsonDocument(resp, "body is a problem details document", problemSchema)
}

// jsonDocument decodes the body as a JSON object and validates it against
// schema. Malformed JSON is a failed outcome. The decoded object is
// returned when the body parses, even if it violates the schema.
func (c *checker) jsonDocument(resp *probe.Response, description string, schema *jsonschema.Schema) map[string]any {
	var doc map[string]any
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		c.fail(description, "malformed JSON body: %v", err)
		return nil
	}
	if violations := schemaViolations(schema, resp.Body); violations != "" {
		c.fail(description, "%s", violations)
		return doc
	}
	c.pass(description)
	return doc
}

// stringField returns doc[key] when it is a string.
func stringField(doc map[string]any, key string) (string, bool) {
	s, ok := doc[key].(string)
	return s, ok
}

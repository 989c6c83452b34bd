package contract

import (
	"net/http"
	"slices"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/registry"
)

// IdentifiersExpect is the expectation for looking up a known URL.
type IdentifiersExpect struct {
	Lookup config.IdentifierLookup
}

func evaluateIdentifiers(in Input, resp *probe.Response) ([]Outcome, error) {
	exp, err := expectation[IdentifiersExpect](in)
	if err != nil {
		return nil, err
	}
	c := newChecker(in)
	c.status(resp, http.StatusOK)
	c.contentVersion(resp)
	c.mediaType(resp, registry.ContentTypeJSON)
	doc := c.jsonDocument(resp, "body lists identifiers", identifiersSchema)

	var got []string
	items, _ := doc["identifiers"].([]any)
	for _, item := range items {
		if s, ok := item.(string); ok {
			got = append(got, s)
		}
	}
	for _, want := range exp.Lookup.Identifiers {
		desc := "identifiers include " + want
		if slices.Contains(got, want) {
			c.pass(desc)
		} else {
			c.fail(desc, "expected %s among %v", want, got)
		}
	}
	return c.result()
}

package contract

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"sort"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/registry"
)

// InfoExpect is the expectation for a known release's information.
type InfoExpect struct {
	Release config.InfoRelease
}

func evaluateInfo(in Input, resp *probe.Response) ([]Outcome, error) {
	exp, err := expectation[InfoExpect](in)
	if err != nil {
		return nil, err
	}
	r := exp.Release.PackageRelease

	c := newChecker(in)
	c.status(resp, http.StatusOK)
	c.contentVersion(resp)
	c.mediaType(resp, registry.ContentTypeJSON)
	links := c.links(resp)
	doc := c.jsonDocument(resp, "body describes the release", releaseInfoSchema)

	c.field(doc, "id", r.Package.String())
	c.field(doc, "version", r.Version)

	resources, _ := doc["resources"].([]any)
	for _, want := range exp.Release.Resources {
		c.resource(resources, want)
	}

	metadata, _ := doc["metadata"].(map[string]any)
	keys := make([]string, 0, len(exp.Release.KeyValues))
	for k := range exp.Release.KeyValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.metadataValue(metadata, k, exp.Release.KeyValues[k])
	}

	for _, rel := range exp.Release.LinkRelations {
		c.linkRelation(links, rel)
	}
	return c.result()
}

func (c *checker) field(doc map[string]any, key, want string) {
	desc := fmt.Sprintf("%s is %q", key, want)
	got, ok := stringField(doc, key)
	switch {
	case !ok:
		c.fail(desc, "%s is missing", key)
	case got != want:
		c.fail(desc, "expected %q, got %q", want, got)
	default:
		c.pass(desc)
	}
}

func (c *checker) resource(resources []any, want config.Resource) {
	desc := fmt.Sprintf("resource %s of type %s is listed", want.Name, want.Type)
	for _, item := range resources {
		res, _ := item.(map[string]any)
		name, _ := stringField(res, "name")
		typ, _ := stringField(res, "type")
		if name != want.Name || typ != want.Type {
			continue
		}
		if want.Checksum == "" {
			c.pass(desc)
			return
		}
		checksum, _ := stringField(res, "checksum")
		if checksum != want.Checksum {
			c.fail(desc, "expected checksum %s, got %q", want.Checksum, checksum)
			return
		}
		c.pass(desc)
		return
	}
	c.fail(desc, "no resource named %s of type %s among %d resources", want.Name, want.Type, len(resources))
}

// metadataValue compares a metadata entry with the expected value after
// both went through JSON, so numbers and nested maps compare by content.
func (c *checker) metadataValue(metadata map[string]any, key string, want any) {
	desc := fmt.Sprintf("metadata %s matches", key)
	got, ok := metadata[key]
	if !ok {
		c.fail(desc, "metadata key %s is missing", key)
		return
	}
	normalized, err := jsonRoundTrip(want)
	if err != nil {
		c.fail(desc, "expected value is not JSON encodable: %v", err)
		return
	}
	if !reflect.DeepEqual(normalized, got) {
		c.fail(desc, "expected %v, got %v", normalized, got)
		return
	}
	c.pass(desc)
}

func jsonRoundTrip(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

package contract

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Response body schemas, compiled once at init.
var (
	problemSchema     = mustCompile("problem.json")
	releasesSchema    = mustCompile("releases.json")
	releaseInfoSchema = mustCompile("release-info.json")
	identifiersSchema = mustCompile("identifiers.json")
)

func mustCompile(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("contract: read schema %s: %v", name, err))
	}
	schema, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		panic(fmt.Sprintf("contract: compile schema %s: %v", name, err))
	}
	return schema
}

// schemaViolations validates data and returns the violations sorted by
// location, or "" when data conforms.
func schemaViolations(schema *jsonschema.Schema, data []byte) string {
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return ""
	}
	keys := make([]string, 0, len(result.Errors))
	for k := range result.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, result.Errors[k]))
	}
	if len(parts) == 0 {
		return "does not match schema"
	}
	return strings.Join(parts, "; ")
}

package config

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// checkSchema unifies the JSON form of cfg with #Configuration.
// A fresh cue.Context is used per call; contexts are not shared.
func checkSchema(cfg *Configuration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile configuration schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Configuration"))

	doc := ctx.CompileBytes(data, cue.Filename("configuration.json"))
	if err := doc.Err(); err != nil {
		return fmt.Errorf("load configuration document: %w", err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &ConfigError{Message: "schema violation", Err: fmt.Errorf("%s", cueerrors.Details(err, nil))}
	}
	return nil
}

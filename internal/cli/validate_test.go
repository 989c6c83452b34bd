package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/regcompat/internal/registry"
	"github.com/roach88/regcompat/internal/testutil"
)

func TestValidateCommand(t *testing.T) {
	cfg := writeFile(t, "config.jsonc", lookupConfig)

	code, stdout, _ := execute(t, "validate", cfg)
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Configuration is valid (1 endpoint(s): lookup-package-identifiers)\n", stdout)
}

func TestValidateCommandJSON(t *testing.T) {
	cfg := writeFile(t, "config.jsonc", lookupConfig)

	code, stdout, _ := execute(t, "validate", cfg, "--format", "json")
	assert.Equal(t, ExitSuccess, code)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []registry.Endpoint{registry.EndpointLookupPackageIdentifiers}, resp.Data.Endpoints)
}

func TestValidateCommandRejectsInvalidIdentity(t *testing.T) {
	cfg := writeFile(t, "config.json", `{
		"lookupPackageIdentifiers": {
			"urls": [{"url": "https://github.com/mona/LinkedList", "identifiers": ["not an identity"]}]
		}
	}`)

	code, stdout, _ := execute(t, "validate", cfg)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, "Error [E002]")
	assert.Contains(t, stdout, "lookupPackageIdentifiers.urls[0]")
}

func TestValidateCommandGenerateData(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteArchive(t, dir, "LinkedList-1.0.0.zip", "LinkedList")
	gendata := filepath.Join(dir, "gendata.json")
	writeTo(t, gendata, `{
		"packages": [{
			"scopePrefix": "mona",
			"name": "LinkedList",
			"releases": [{"version": "1.0.0", "sourceArchivePath": "LinkedList-1.0.0.zip"}]
		}],
		"fetchPackageReleaseInfo": {}
	}`)

	code, stdout, _ := execute(t, "validate", gendata, "--generate-data")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "fetch-package-release-info")

	code, _, _ = execute(t, "validate", gendata)
	assert.Equal(t, ExitCommandError, code)
}

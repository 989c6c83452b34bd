package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/registry"
	"github.com/roach88/regcompat/internal/testutil"
)

const lookupConfig = `{
	// Identifiers of a package seeded by the test.
	"lookupPackageIdentifiers": {
		"urls": [
			{"url": "https://github.com/mona/LinkedList", "identifiers": ["mona.LinkedList"]}
		],
		"unknownURLs": ["https://github.com/test-xxxxxx/unknown"]
	}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	writeTo(t, path, content)
	return path
}

func writeTo(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func seededRegistry(t *testing.T, behavior testutil.RegistryBehavior) *testutil.FakeRegistry {
	t.Helper()
	reg := testutil.NewFakeRegistry(t, behavior)
	archive, err := testutil.BuildArchive("LinkedList", testutil.PackageFiles("LinkedList", "4.2"))
	require.NoError(t, err)
	release := ident.PackageRelease{
		Package: ident.PackageIdentity{Scope: "mona", Name: "LinkedList"},
		Version: "1.1.1",
	}
	metadata := []byte(`{"repositoryURLs": ["https://github.com/mona/LinkedList"]}`)
	require.NoError(t, reg.Seed(release, archive, metadata))
	return reg
}

func TestCheckPasses(t *testing.T) {
	reg := seededRegistry(t, testutil.RegistryBehavior{})
	cfg := writeFile(t, "config.jsonc", lookupConfig)

	code, stdout, _ := execute(t, "lookup-package-identifiers", reg.URL(), cfg)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "PASS Lookup Package Identifiers - All tests passed.")
	assert.Len(t, reg.Requests(), 2)
}

func TestCheckFailuresExitOne(t *testing.T) {
	reg := testutil.NewFakeRegistry(t, testutil.RegistryBehavior{})
	cfg := writeFile(t, "config.jsonc", lookupConfig)

	code, stdout, _ := execute(t, "all", reg.URL(), cfg, "--format", "json")
	assert.Equal(t, ExitFailure, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "failed", resp.Status)
}

func TestCheckAuthToken(t *testing.T) {
	reg := seededRegistry(t, testutil.RegistryBehavior{Authorization: "Bearer s3cret"})
	cfg := writeFile(t, "config.jsonc", lookupConfig)

	code, _, _ := execute(t, "all", reg.URL(), cfg, "--auth-token", "bearer:s3cret")
	assert.Equal(t, ExitSuccess, code)

	code, _, _ = execute(t, "all", reg.URL(), cfg)
	assert.Equal(t, ExitFailure, code)
}

func TestCheckCommandErrors(t *testing.T) {
	cfg := writeFile(t, "config.jsonc", lookupConfig)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid auth token", []string{"all", "http://localhost", cfg, "--auth-token", "password"}, "invalid --auth-token"},
		{"empty auth secret", []string{"all", "http://localhost", cfg, "--auth-token", "bearer:"}, "invalid --auth-token"},
		{"output config without generate", []string{"all", "http://localhost", cfg, "--output-config", "out.json"}, "--output-config requires --generate-data"},
		{"invalid url", []string{"all", "ftp://localhost", cfg}, "invalid registry URL"},
		{"missing config", []string{"all", "http://localhost", filepath.Join(t.TempDir(), "absent.json")}, "invalid configuration"},
		{"missing section", []string{"list-package-releases", "http://localhost", cfg}, "configuration has no section for list-package-releases"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := execute(t, tt.args...)
			assert.Equal(t, ExitCommandError, code)
			assert.Contains(t, stdout, tt.want)
		})
	}
}

func TestCheckGenerateThenVerify(t *testing.T) {
	reg := testutil.NewFakeRegistry(t, testutil.RegistryBehavior{})
	dir := t.TempDir()
	testutil.WriteArchive(t, dir, "LinkedList-1.0.0.zip", "LinkedList", "4.2")
	testutil.WriteArchive(t, dir, "LinkedList-1.1.1.zip", "LinkedList", "4.2", "5.3")
	gendata := filepath.Join(dir, "gendata.yaml")
	require.NoError(t, os.WriteFile(gendata, []byte(`packages:
  - scopePrefix: mona
    name: LinkedList
    repositoryURLs:
      - https://github.com/mona/LinkedList
    releases:
      - version: 1.0.0
        sourceArchivePath: LinkedList-1.0.0.zip
        swiftVersions: ["4.2"]
        noSwiftVersions: ["5.9"]
      - version: 1.1.1
        sourceArchivePath: LinkedList-1.1.1.zip
        swiftVersions: ["4.2", "5.3"]
listPackageReleases:
  packageURLProvided: true
fetchPackageReleaseInfo: {}
fetchPackageReleaseManifest:
  contentLengthHeaderIsSet: true
  contentDispositionHeaderIsSet: true
  linkHeaderHasAlternateRelations: true
downloadSourceArchive:
  contentLengthHeaderIsSet: true
  contentDispositionHeaderIsSet: true
  digestHeaderIsSet: true
lookupPackageIdentifiers: {}
`), 0o644))
	derived := filepath.Join(dir, "derived.json")
	fixtures := filepath.Join(dir, "fixtures.db")

	code, stdout, stderr := execute(t, "all", reg.URL(), gendata,
		"--generate-data", "--output-config", derived, "--fixtures", fixtures, "--workers", "3")
	require.Equal(t, ExitSuccess, code, stdout+stderr)

	cfg, err := config.Load(derived)
	require.NoError(t, err)
	assert.Equal(t, []registry.Endpoint{
		registry.EndpointListPackageReleases,
		registry.EndpointFetchPackageReleaseInfo,
		registry.EndpointFetchPackageReleaseManifest,
		registry.EndpointDownloadSourceArchive,
		registry.EndpointLookupPackageIdentifiers,
	}, cfg.Endpoints())

	code, stdout, stderr = execute(t, "all", reg.URL(), derived, "--fixtures", fixtures)
	require.Equal(t, ExitSuccess, code, stdout+stderr)
	assert.Contains(t, stdout, "PASS 5 scenarios")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/registry"
)

const manifestJSON = `{
  // comments are allowed in JSON configuration files
  "fetchPackageReleaseManifest": {
    "packageReleases": [
      {
        "packageRelease": {
          "package": {"scope": "sunshinejr-abcdef", "name": "SwiftyUserDefaults"},
          "version": "5.3.0"
        },
        "swiftVersions": ["4.2"],
        "noSwiftVersions": ["5.0"]
      }
    ],
    "unknownPackageReleases": [
      {"package": {"scope": "test-xxxxxx", "name": "unknown"}, "version": "1.0.0"}
    ],
    "contentLengthHeaderIsSet": true,
    "contentDispositionHeaderIsSet": true,
    "linkHeaderHasAlternateRelations": true,
  }
}`

const manifestYAML = `fetchPackageReleaseManifest:
  packageReleases:
    - packageRelease:
        package: {scope: sunshinejr-abcdef, name: SwiftyUserDefaults}
        version: 5.3.0
      swiftVersions: ["4.2"]
      noSwiftVersions: ["5.0"]
  unknownPackageReleases:
    - package: {scope: test-xxxxxx, name: unknown}
      version: 1.0.0
  contentLengthHeaderIsSet: true
  contentDispositionHeaderIsSet: true
  linkHeaderHasAlternateRelations: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func expectedManifestSection() *FetchPackageReleaseManifestConfig {
	return &FetchPackageReleaseManifestConfig{
		PackageReleases: []ManifestRelease{{
			PackageRelease: ident.PackageRelease{
				Package: ident.PackageIdentity{Scope: "sunshinejr-abcdef", Name: "SwiftyUserDefaults"},
				Version: "5.3.0",
			},
			SwiftVersions:   []string{"4.2"},
			NoSwiftVersions: []string{"5.0"},
		}},
		UnknownPackageReleases: []ident.PackageRelease{{
			Package: ident.PackageIdentity{Scope: "test-xxxxxx", Name: "unknown"},
			Version: "1.0.0",
		}},
		ContentLengthHeaderIsSet:        true,
		ContentDispositionHeaderIsSet:   true,
		LinkHeaderHasAlternateRelations: true,
	}
}

func TestLoadJSONWithComments(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.json", manifestJSON))
	require.NoError(t, err)

	assert.Equal(t, expectedManifestSection(), cfg.FetchPackageReleaseManifest)
	assert.Equal(t, []registry.Endpoint{registry.EndpointFetchPackageReleaseManifest}, cfg.Endpoints())
	assert.Equal(t, []int{200, 303}, cfg.FetchPackageReleaseManifest.AcceptedNoSwiftVersionStatuses())
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", manifestYAML))
	require.NoError(t, err)

	assert.Equal(t, expectedManifestSection(), cfg.FetchPackageReleaseManifest)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "config.json", `{"fetchPackageReleaseManifst": {}}`},
		{"yaml", "config.yml", "fetchPackageReleaseManifst: {}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Contains(t, err.Error(), "fetchPackageReleaseManifst")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "failed to read configuration")
}

func TestLoadEmptyConfiguration(t *testing.T) {
	path := writeFile(t, "config.json", `{}`)
	_, err := Load(path)
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, path, ce.Path)
	assert.Contains(t, ce.Message, "no test sections")
}

func TestSaveRoundTrip(t *testing.T) {
	original, err := Parse([]byte(manifestJSON), FormatJSON)
	require.NoError(t, err)
	original.LookupPackageIdentifiers = &LookupPackageIdentifiersConfig{
		URLs: []IdentifierLookup{{
			URL:         "https://github.com/sunshinejr/SwiftyUserDefaults",
			Identifiers: []string{"sunshinejr-abcdef.SwiftyUserDefaults"},
		}},
		UnknownURLs: []string{"https://github.com/test-xxxxxx/unknown"},
	}
	original.FetchPackageReleaseInfo = &FetchPackageReleaseInfoConfig{
		PackageReleases: []InfoRelease{{
			PackageRelease: original.FetchPackageReleaseManifest.PackageReleases[0].PackageRelease,
			Resources:      []Resource{{Name: "source-archive", Type: "application/zip", Checksum: "abc"}},
			KeyValues:      map[string]any{"description": "Swifty UserDefaults"},
			LinkRelations:  []string{"latest-version"},
		}},
	}

	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, Save(path, original))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, original, loaded)
		})
	}
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("a.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("a.YML"))
	assert.Equal(t, FormatJSON, FormatForPath("a.json"))
	assert.Equal(t, FormatJSON, FormatForPath("a.jsonc"))
	assert.Equal(t, FormatJSON, FormatForPath("config"))
}

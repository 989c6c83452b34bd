package contract

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/registry"
)

const infoBody = `{
  "id": "sunshinejr-abcdef.SwiftyUserDefaults",
  "version": "5.3.0",
  "resources": [
    {"name": "source-archive", "type": "application/zip", "checksum": "a2ac54cf25fbc1ad0028f03f0aa4b96833b83bb05a14e510892bb27dea4dc812"}
  ],
  "metadata": {
    "description": "Swifty UserDefaults",
    "licenseURL": "https://github.com/sunshinejr/SwiftyUserDefaults/blob/master/LICENSE",
    "keywords": ["userdefaults", "swift"]
  }
}`

func infoExpect() InfoExpect {
	return InfoExpect{Release: config.InfoRelease{
		PackageRelease: swifty,
		Resources: []config.Resource{{
			Name:     "source-archive",
			Type:     "application/zip",
			Checksum: "a2ac54cf25fbc1ad0028f03f0aa4b96833b83bb05a14e510892bb27dea4dc812",
		}},
		KeyValues: map[string]any{
			"description": "Swifty UserDefaults",
			"keywords":    []string{"userdefaults", "swift"},
		},
		LinkRelations: []string{"latest-version", "predecessor-version"},
	}}
}

func infoInput(exp InfoExpect) Input {
	return Input{Endpoint: registry.EndpointFetchPackageReleaseInfo, Case: CaseKnown, Expect: exp}
}

const infoLinks = `<https://registry.example.com/sunshinejr-abcdef/SwiftyUserDefaults/5.3.0>; rel="latest-version", <https://registry.example.com/sunshinejr-abcdef/SwiftyUserDefaults/5.0.0>; rel="predecessor-version"`

func TestInfoKnownRelease(t *testing.T) {
	resp := response(http.StatusOK, infoBody,
		"Content-Version", "1",
		"Content-Type", "application/json",
		"Link", infoLinks,
	)

	outcomes, err := Evaluate(infoInput(infoExpect()), resp)
	require.NoError(t, err)
	requireAllPassed(t, outcomes)
	assert.Len(t, outcomes, 11)
}

func TestInfoMismatches(t *testing.T) {
	body := `{
	  "id": "sunshinejr-abcdef.SwiftyUserDefaults",
	  "version": "5.0.0",
	  "resources": [{"name": "source-archive", "type": "application/zip", "checksum": "00"}],
	  "metadata": {"description": "something else"}
	}`
	resp := response(http.StatusOK, body,
		"Content-Version", "1",
		"Content-Type", "application/json",
		"Link", `<https://registry.example.com/sunshinejr-abcdef/SwiftyUserDefaults/5.3.0>; rel="latest-version"`,
	)

	outcomes, err := Evaluate(infoInput(infoExpect()), resp)
	require.NoError(t, err)

	var descriptions []string
	for _, o := range failures(outcomes) {
		descriptions = append(descriptions, o.Description)
	}
	assert.Equal(t, []string{
		`version is "5.3.0"`,
		"resource source-archive of type application/zip is listed",
		"metadata description matches",
		"metadata keywords matches",
		`Link header has "predecessor-version" relation`,
	}, descriptions)
}

func TestInfoSchemaViolation(t *testing.T) {
	resp := response(http.StatusOK, `{"version": "5.3.0"}`, "Content-Version", "1", "Content-Type", "application/json")

	outcomes, err := Evaluate(infoInput(InfoExpect{Release: config.InfoRelease{PackageRelease: swifty}}), resp)
	require.NoError(t, err)

	failed := failures(outcomes)
	require.Len(t, failed, 2)
	assert.Equal(t, "body describes the release", failed[0].Description)
	assert.NotEmpty(t, failed[0].Detail)
	assert.Equal(t, "id is missing", failed[1].Detail)
}

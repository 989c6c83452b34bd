package contract

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/registry"
)

// ManifestExpect is the expectation for the manifest endpoint.
type ManifestExpect struct {
	Release config.ManifestRelease

	// SwiftVersion is the requested tool version for the swift-version and
	// no-swift-version cases.
	SwiftVersion string

	// NoVariantStatuses is the accepted status set when SwiftVersion is a
	// version the release has no manifest for.
	NoVariantStatuses []int

	ContentLength      bool
	ContentDisposition bool
	AlternateLinks     bool
}

// evaluateManifest checks the unqualified manifest of a known release.
func evaluateManifest(in Input, resp *probe.Response) ([]Outcome, error) {
	exp, err := expectation[ManifestExpect](in)
	if err != nil {
		return nil, err
	}
	c := newChecker(in)
	c.status(resp, http.StatusOK)
	c.contentVersion(resp)
	c.mediaType(resp, registry.ContentTypeSwift)
	c.nonEmptyBody(resp, "manifest body is not empty")
	if exp.ContentLength {
		c.contentLength(resp)
	}
	if exp.ContentDisposition {
		c.contentDisposition(resp, "")
	}
	if exp.AlternateLinks {
		links := c.links(resp)
		alternates := registry.FindRel(links, registry.RelAlternate)
		for _, v := range exp.Release.SwiftVersions {
			c.alternateLink(alternates, v)
		}
	}
	return c.result()
}

// alternateLink checks for an alternate relation naming swiftVersion,
// either through the swift-version query of its target or its filename.
func (c *checker) alternateLink(alternates []registry.Link, swiftVersion string) {
	desc := fmt.Sprintf("Link header has an alternate relation for Swift %s", swiftVersion)
	filename := registry.ManifestFilename(swiftVersion)
	for _, l := range alternates {
		if l.Params["filename"] == filename {
			c.pass(desc)
			return
		}
		if u, err := url.Parse(l.URL); err == nil && u.Query().Get(registry.SwiftVersionParameter) == swiftVersion {
			c.pass(desc)
			return
		}
	}
	c.fail(desc, "found %d alternate relations, none for Swift %s", len(alternates), swiftVersion)
}

// evaluateManifestSwiftVersion checks a tool-version manifest the release
// declares. It must exist and differ from the unqualified manifest.
func evaluateManifestSwiftVersion(in Input, resp *probe.Response) ([]Outcome, error) {
	exp, err := expectation[ManifestExpect](in)
	if err != nil {
		return nil, err
	}
	c := newChecker(in)
	c.status(resp, http.StatusOK)
	c.contentVersion(resp)
	c.mediaType(resp, registry.ContentTypeSwift)
	if exp.ContentDisposition {
		c.contentDisposition(resp, registry.ManifestFilename(exp.SwiftVersion))
	}

	desc := fmt.Sprintf("manifest for Swift %s differs from the unqualified manifest", exp.SwiftVersion)
	switch {
	case in.Baseline == nil:
		c.fail(desc, "unqualified manifest is unavailable")
	case in.Baseline.StatusCode != http.StatusOK:
		c.fail(desc, "unqualified manifest returned status %d", in.Baseline.StatusCode)
	case bytes.Equal(resp.Body, in.Baseline.Body):
		c.fail(desc, "bodies are identical (%d bytes)", len(resp.Body))
	default:
		c.pass(desc)
	}
	return c.result()
}

// evaluateManifestNoSwiftVersion checks a tool-version manifest the release
// does not have. The registry may serve the unqualified manifest (200),
// redirect to it (303) or report it missing (404), whichever of those the
// configuration accepts.
func evaluateManifestNoSwiftVersion(in Input, resp *probe.Response) ([]Outcome, error) {
	exp, err := expectation[ManifestExpect](in)
	if err != nil {
		return nil, err
	}
	accepted := exp.NoVariantStatuses
	if len(accepted) == 0 {
		accepted = config.DefaultNoSwiftVersionStatuses
	}

	c := newChecker(in)
	ok := c.status(resp, accepted...)
	c.contentVersion(resp)
	if !ok {
		return c.result()
	}

	switch resp.StatusCode {
	case http.StatusOK:
		c.mediaType(resp, registry.ContentTypeSwift)
		desc := fmt.Sprintf("manifest for Swift %s is the unqualified manifest", exp.SwiftVersion)
		switch {
		case in.Baseline == nil:
			c.fail(desc, "unqualified manifest is unavailable")
		case !bytes.Equal(resp.Body, in.Baseline.Body):
			c.fail(desc, "bodies differ (%d bytes, unqualified %d bytes)", len(resp.Body), len(in.Baseline.Body))
		default:
			c.pass(desc)
		}
	case http.StatusSeeOther, http.StatusFound, http.StatusMovedPermanently, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		c.redirectsToUnqualified(resp, exp)
	case http.StatusNotFound:
		c.problem(resp)
	}
	return c.result()
}

func (c *checker) redirectsToUnqualified(resp *probe.Response, exp ManifestExpect) {
	desc := "Location names the unqualified manifest"
	location := resp.Header.Get(registry.HeaderLocation)
	if location == "" {
		c.fail(desc, "Location header is missing")
		return
	}
	u, err := url.Parse(location)
	if err != nil {
		c.fail(desc, "invalid Location %q: %v", location, err)
		return
	}
	want := registry.ManifestPath(exp.Release.PackageRelease, "")
	wantUnescaped, _ := url.PathUnescape(want)
	if !strings.HasSuffix(u.Path, wantUnescaped) || u.Query().Has(registry.SwiftVersionParameter) {
		c.fail(desc, "expected a location ending in %s, got %q", want, location)
		return
	}
	c.pass(desc)
}

func (c *checker) nonEmptyBody(resp *probe.Response, description string) {
	if len(resp.Body) > 0 {
		c.pass(description)
		return
	}
	c.fail(description, "body is empty")
}

// evaluateUnknown checks that a resource the registry does not have is
// reported as 404 with problem details.
func evaluateUnknown(in Input, resp *probe.Response) ([]Outcome, error) {
	c := newChecker(in)
	c.status(resp, http.StatusNotFound)
	c.contentVersion(resp)
	c.problem(resp)
	return c.result()
}

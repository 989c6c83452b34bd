package contract

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"slices"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/registry"
)

// ListExpect is the expectation for listing a known package's releases.
type ListExpect struct {
	Package             config.ListPackage
	PackageURLProvided  bool
	ProblemProvided     bool
	PaginationSupported bool
}

func evaluateList(in Input, resp *probe.Response) ([]Outcome, error) {
	exp, err := expectation[ListExpect](in)
	if err != nil {
		return nil, err
	}
	c := newChecker(in)
	c.status(resp, http.StatusOK)
	c.contentVersion(resp)
	c.mediaType(resp, registry.ContentTypeJSON)
	links := c.links(resp)

	doc := c.jsonDocument(resp, "body lists releases", releasesSchema)
	releases, _ := doc["releases"].(map[string]any)

	pageIsShort := exp.PaginationSupported && len(releases) < exp.Package.NumberOfReleases
	if exp.PaginationSupported {
		if pageIsShort {
			c.linkRelation(links, registry.RelNext)
		}
		desc := fmt.Sprintf("page holds at most %d releases", exp.Package.NumberOfReleases)
		if len(releases) <= exp.Package.NumberOfReleases {
			c.pass(desc)
		} else {
			c.fail(desc, "expected at most %d, got %d", exp.Package.NumberOfReleases, len(releases))
		}
	} else {
		desc := fmt.Sprintf("lists %d releases", exp.Package.NumberOfReleases)
		if len(releases) == exp.Package.NumberOfReleases {
			c.pass(desc)
		} else {
			c.fail(desc, "expected %d, got %d", exp.Package.NumberOfReleases, len(releases))
		}
	}

	for _, v := range exp.Package.Versions {
		if _, ok := releases[v]; ok {
			c.pass(fmt.Sprintf("lists version %s", v))
			continue
		}
		if pageIsShort {
			// May be on another page.
			continue
		}
		c.fail(fmt.Sprintf("lists version %s", v), "version %s not found in releases", v)
	}

	if exp.PackageURLProvided {
		for _, v := range sortedKeys(releases) {
			if slices.Contains(exp.Package.UnavailableVersions, v) {
				continue
			}
			entry, _ := releases[v].(map[string]any)
			desc := fmt.Sprintf("release %s has a url", v)
			if u, ok := stringField(entry, "url"); ok && u != "" {
				c.pass(desc)
			} else {
				c.fail(desc, "url is missing for release %s", v)
			}
		}
	}

	if exp.ProblemProvided {
		for _, v := range exp.Package.UnavailableVersions {
			entry, listed := releases[v].(map[string]any)
			desc := fmt.Sprintf("unavailable release %s has a problem", v)
			if !listed {
				if !pageIsShort {
					c.fail(desc, "version %s not found in releases", v)
				}
				continue
			}
			if _, ok := entry["problem"].(map[string]any); ok {
				c.pass(desc)
			} else {
				c.fail(desc, "problem is missing for release %s", v)
			}
		}
	}

	for _, rel := range exp.Package.LinkRelations {
		c.linkRelation(links, rel)
	}

	if latest := registry.FindRel(links, registry.RelLatestVersion); len(latest) > 0 && len(releases) > 0 && !pageIsShort {
		var available []string
		for v := range releases {
			if !slices.Contains(exp.Package.UnavailableVersions, v) {
				available = append(available, v)
			}
		}
		newest := registry.NewestVersion(available)
		desc := "latest-version relation names the newest release " + newest
		if got := linkVersion(latest[0].URL); got == newest {
			c.pass(desc)
		} else {
			c.fail(desc, "expected %s, got %q", newest, latest[0].URL)
		}
	}
	return c.result()
}

// linkVersion returns the last path segment of a release URL.
func linkVersion(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return path.Base(u.Path)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return registry.SortVersions(keys)
}

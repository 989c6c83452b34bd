package harness

import (
	"net/http"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/contract"
	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/provision"
	"github.com/roach88/regcompat/internal/registry"
)

// Plan builds one scenario per configured endpoint, in declaration order.
// provisions lists, per endpoint, the releases to provision before the
// scenario's requests; it may be nil.
func Plan(cfg *config.Configuration, provisions map[registry.Endpoint][]provision.Release) []Scenario {
	var scenarios []Scenario
	for _, e := range cfg.Endpoints() {
		sc := Scenario{
			Name:     e.Title(),
			Endpoint: e,
			Setup:    provisions[e],
		}
		switch e {
		case registry.EndpointCreatePackageRelease:
			sc.Interactions = planCreate(cfg.CreatePackageRelease)
		case registry.EndpointListPackageReleases:
			sc.Interactions = planList(cfg.ListPackageReleases)
		case registry.EndpointFetchPackageReleaseInfo:
			sc.Interactions = planInfo(cfg.FetchPackageReleaseInfo)
		case registry.EndpointFetchPackageReleaseManifest:
			sc.Interactions = planManifest(cfg.FetchPackageReleaseManifest)
		case registry.EndpointDownloadSourceArchive:
			sc.Interactions = planArchive(cfg.DownloadSourceArchive)
		case registry.EndpointLookupPackageIdentifiers:
			sc.Interactions = planIdentifiers(cfg.LookupPackageIdentifiers)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios
}

func get(path, accept string) probe.Request {
	return probe.Request{
		Method: http.MethodGet,
		Path:   path,
		Header: http.Header{registry.HeaderAccept: {accept}},
	}
}

func input(e registry.Endpoint, c contract.Case, subject string, expect any) contract.Input {
	return contract.Input{Endpoint: e, Case: c, Subject: subject, Expect: expect}
}

func planCreate(c *config.CreatePackageReleaseConfig) []Interaction {
	const e = registry.EndpointCreatePackageRelease
	var out []Interaction
	for i := range c.PackageReleases {
		p := &c.PackageReleases[i]
		r := p.PackageRelease
		expect := contract.PublishExpect{Release: r}
		out = append(out,
			Interaction{
				Variant:         "publish/" + r.String(),
				Publish:         p,
				Input:           input(e, contract.CasePublish, r.String(), expect),
				AwaitProcessing: true,
			},
			Interaction{
				Variant: "duplicate/" + r.String(),
				Publish: p,
				Input:   input(e, contract.CaseDuplicate, r.String(), expect),
			},
		)
	}
	return out
}

func planList(c *config.ListPackageReleasesConfig) []Interaction {
	const e = registry.EndpointListPackageReleases
	var out []Interaction
	for _, p := range c.Packages {
		out = append(out, Interaction{
			Variant: "known/" + p.Package.String(),
			Request: get(registry.ReleasesPath(p.Package), registry.MediaTypeJSON),
			Input: input(e, contract.CaseKnown, p.Package.String(), contract.ListExpect{
				Package:             p,
				PackageURLProvided:  c.PackageURLProvided,
				ProblemProvided:     c.ProblemProvided,
				PaginationSupported: c.PaginationSupported,
			}),
		})
	}
	for _, p := range c.UnknownPackages {
		out = append(out, Interaction{
			Variant: "unknown/" + p.String(),
			Request: get(registry.ReleasesPath(p), registry.MediaTypeJSON),
			Input:   input(e, contract.CaseUnknown, p.String(), nil),
		})
	}
	return out
}

func planInfo(c *config.FetchPackageReleaseInfoConfig) []Interaction {
	const e = registry.EndpointFetchPackageReleaseInfo
	var out []Interaction
	for _, r := range c.PackageReleases {
		out = append(out, Interaction{
			Variant: "known/" + r.PackageRelease.String(),
			Request: get(registry.ReleasePath(r.PackageRelease), registry.MediaTypeJSON),
			Input:   input(e, contract.CaseKnown, r.PackageRelease.String(), contract.InfoExpect{Release: r}),
		})
	}
	out = append(out, unknownReleases(e, c.UnknownPackageReleases, registry.ReleasePath, registry.MediaTypeJSON)...)
	return out
}

func planManifest(c *config.FetchPackageReleaseManifestConfig) []Interaction {
	const e = registry.EndpointFetchPackageReleaseManifest
	var out []Interaction
	for _, r := range c.PackageReleases {
		pr := r.PackageRelease
		known := "known/" + pr.String()
		base := contract.ManifestExpect{
			Release:            r,
			NoVariantStatuses:  c.AcceptedNoSwiftVersionStatuses(),
			ContentLength:      c.ContentLengthHeaderIsSet,
			ContentDisposition: c.ContentDispositionHeaderIsSet,
			AlternateLinks:     c.LinkHeaderHasAlternateRelations,
		}
		out = append(out, Interaction{
			Variant: known,
			Request: get(registry.ManifestPath(pr, ""), registry.MediaTypeSwift),
			Input:   input(e, contract.CaseKnown, pr.String(), base),
		})
		for _, v := range r.SwiftVersions {
			expect := base
			expect.SwiftVersion = v
			out = append(out, Interaction{
				Variant:  "swift-version/" + pr.String() + "/" + v,
				Request:  get(registry.ManifestPath(pr, v), registry.MediaTypeSwift),
				Input:    input(e, contract.CaseSwiftVersion, pr.String()+"?swift-version="+v, expect),
				Baseline: known,
			})
		}
		for _, v := range r.NoSwiftVersions {
			expect := base
			expect.SwiftVersion = v
			out = append(out, Interaction{
				Variant:  "no-swift-version/" + pr.String() + "/" + v,
				Request:  get(registry.ManifestPath(pr, v), registry.MediaTypeSwift),
				Input:    input(e, contract.CaseNoSwiftVersion, pr.String()+"?swift-version="+v, expect),
				Baseline: known,
			})
		}
	}
	out = append(out, unknownReleases(e, c.UnknownPackageReleases, func(r ident.PackageRelease) string {
		return registry.ManifestPath(r, "")
	}, registry.MediaTypeSwift)...)
	return out
}

func planArchive(c *config.DownloadSourceArchiveConfig) []Interaction {
	const e = registry.EndpointDownloadSourceArchive
	var out []Interaction
	for _, a := range c.SourceArchives {
		out = append(out, Interaction{
			Variant: "known/" + a.PackageRelease.String(),
			Request: get(registry.SourceArchivePath(a.PackageRelease), registry.MediaTypeZip),
			Input: input(e, contract.CaseKnown, a.PackageRelease.String(), contract.ArchiveExpect{
				Archive:            a,
				ContentLength:      c.ContentLengthHeaderIsSet,
				ContentDisposition: c.ContentDispositionHeaderIsSet,
				Digest:             c.DigestHeaderIsSet,
			}),
		})
	}
	out = append(out, unknownReleases(e, c.UnknownPackageReleases, registry.SourceArchivePath, registry.MediaTypeZip)...)
	return out
}

func planIdentifiers(c *config.LookupPackageIdentifiersConfig) []Interaction {
	const e = registry.EndpointLookupPackageIdentifiers
	var out []Interaction
	for _, l := range c.URLs {
		out = append(out, Interaction{
			Variant: "known/" + l.URL,
			Request: get(registry.IdentifiersPath(l.URL), registry.MediaTypeJSON),
			Input:   input(e, contract.CaseKnown, l.URL, contract.IdentifiersExpect{Lookup: l}),
		})
	}
	for _, u := range c.UnknownURLs {
		out = append(out, Interaction{
			Variant: "unknown/" + u,
			Request: get(registry.IdentifiersPath(u), registry.MediaTypeJSON),
			Input:   input(e, contract.CaseUnknown, u, nil),
		})
	}
	return out
}

func unknownReleases(e registry.Endpoint, releases []ident.PackageRelease, path func(ident.PackageRelease) string, accept string) []Interaction {
	var out []Interaction
	for _, r := range releases {
		out = append(out, Interaction{
			Variant: "unknown/" + r.String(),
			Request: get(path(r), accept),
			Input:   input(e, contract.CaseUnknown, r.String(), nil),
		})
	}
	return out
}

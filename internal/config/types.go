package config

import (
	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/registry"
)

// Configuration is the complete test configuration. Sections appear in the
// order scenarios are declared and run.
type Configuration struct {
	CreatePackageRelease        *CreatePackageReleaseConfig        `json:"createPackageRelease,omitempty" yaml:"createPackageRelease,omitempty"`
	ListPackageReleases         *ListPackageReleasesConfig         `json:"listPackageReleases,omitempty" yaml:"listPackageReleases,omitempty"`
	FetchPackageReleaseInfo     *FetchPackageReleaseInfoConfig     `json:"fetchPackageReleaseInfo,omitempty" yaml:"fetchPackageReleaseInfo,omitempty"`
	FetchPackageReleaseManifest *FetchPackageReleaseManifestConfig `json:"fetchPackageReleaseManifest,omitempty" yaml:"fetchPackageReleaseManifest,omitempty"`
	DownloadSourceArchive       *DownloadSourceArchiveConfig       `json:"downloadSourceArchive,omitempty" yaml:"downloadSourceArchive,omitempty"`
	LookupPackageIdentifiers    *LookupPackageIdentifiersConfig    `json:"lookupPackageIdentifiers,omitempty" yaml:"lookupPackageIdentifiers,omitempty"`
}

// Endpoints returns the endpoints that have a section, in declaration order.
func (c *Configuration) Endpoints() []registry.Endpoint {
	var out []registry.Endpoint
	for _, e := range registry.Endpoints() {
		if c.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether the configuration has a section for e.
func (c *Configuration) Has(e registry.Endpoint) bool {
	switch e {
	case registry.EndpointCreatePackageRelease:
		return c.CreatePackageRelease != nil
	case registry.EndpointListPackageReleases:
		return c.ListPackageReleases != nil
	case registry.EndpointFetchPackageReleaseInfo:
		return c.FetchPackageReleaseInfo != nil
	case registry.EndpointFetchPackageReleaseManifest:
		return c.FetchPackageReleaseManifest != nil
	case registry.EndpointDownloadSourceArchive:
		return c.DownloadSourceArchive != nil
	case registry.EndpointLookupPackageIdentifiers:
		return c.LookupPackageIdentifiers != nil
	}
	return false
}

// CreatePackageReleaseConfig drives PUT /{scope}/{name}/{version}.
type CreatePackageReleaseConfig struct {
	PackageReleases []PublishRelease `json:"packageReleases" yaml:"packageReleases"`

	// MaxProcessingTimeInSeconds bounds how long an asynchronous (202)
	// publication is polled before it counts as failed.
	MaxProcessingTimeInSeconds int `json:"maxProcessingTimeInSeconds,omitempty" yaml:"maxProcessingTimeInSeconds,omitempty"`
}

// PublishRelease is a release to publish. The release must not exist yet.
type PublishRelease struct {
	PackageRelease    ident.PackageRelease `json:"packageRelease" yaml:"packageRelease"`
	SourceArchivePath string               `json:"sourceArchivePath" yaml:"sourceArchivePath"`
	MetadataPath      string               `json:"metadataPath,omitempty" yaml:"metadataPath,omitempty"`
}

// ListPackageReleasesConfig drives GET /{scope}/{name}.
type ListPackageReleasesConfig struct {
	Packages            []ListPackage           `json:"packages" yaml:"packages"`
	UnknownPackages     []ident.PackageIdentity `json:"unknownPackages,omitempty" yaml:"unknownPackages,omitempty"`
	PackageURLProvided  bool                    `json:"packageURLProvided" yaml:"packageURLProvided"`
	ProblemProvided     bool                    `json:"problemProvided" yaml:"problemProvided"`
	PaginationSupported bool                    `json:"paginationSupported" yaml:"paginationSupported"`
}

// ListPackage is a package whose release list is checked.
type ListPackage struct {
	Package             ident.PackageIdentity `json:"package" yaml:"package"`
	NumberOfReleases    int                   `json:"numberOfReleases" yaml:"numberOfReleases"`
	Versions            []string              `json:"versions,omitempty" yaml:"versions,omitempty"`
	UnavailableVersions []string              `json:"unavailableVersions,omitempty" yaml:"unavailableVersions,omitempty"`
	LinkRelations       []string              `json:"linkRelations,omitempty" yaml:"linkRelations,omitempty"`
}

// FetchPackageReleaseInfoConfig drives GET /{scope}/{name}/{version}.
type FetchPackageReleaseInfoConfig struct {
	PackageReleases        []InfoRelease          `json:"packageReleases" yaml:"packageReleases"`
	UnknownPackageReleases []ident.PackageRelease `json:"unknownPackageReleases,omitempty" yaml:"unknownPackageReleases,omitempty"`
}

// InfoRelease is a release whose metadata is checked.
type InfoRelease struct {
	PackageRelease ident.PackageRelease `json:"packageRelease" yaml:"packageRelease"`
	Resources      []Resource           `json:"resources,omitempty" yaml:"resources,omitempty"`
	KeyValues      map[string]any       `json:"keyValues,omitempty" yaml:"keyValues,omitempty"`
	LinkRelations  []string             `json:"linkRelations,omitempty" yaml:"linkRelations,omitempty"`
}

// Resource is an expected entry of a release's "resources" array.
type Resource struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// FetchPackageReleaseManifestConfig drives GET .../Package.swift.
type FetchPackageReleaseManifestConfig struct {
	PackageReleases                 []ManifestRelease      `json:"packageReleases" yaml:"packageReleases"`
	UnknownPackageReleases          []ident.PackageRelease `json:"unknownPackageReleases,omitempty" yaml:"unknownPackageReleases,omitempty"`
	ContentLengthHeaderIsSet        bool                   `json:"contentLengthHeaderIsSet" yaml:"contentLengthHeaderIsSet"`
	ContentDispositionHeaderIsSet   bool                   `json:"contentDispositionHeaderIsSet" yaml:"contentDispositionHeaderIsSet"`
	LinkHeaderHasAlternateRelations bool                   `json:"linkHeaderHasAlternateRelations" yaml:"linkHeaderHasAlternateRelations"`

	// NoSwiftVersionStatuses lists the statuses accepted when a declared
	// absent tool-version manifest is requested. Empty means
	// DefaultNoSwiftVersionStatuses.
	NoSwiftVersionStatuses []int `json:"noSwiftVersionStatuses,omitempty" yaml:"noSwiftVersionStatuses,omitempty"`
}

// DefaultNoSwiftVersionStatuses is the accepted status set for a request of
// a tool-version manifest the release does not have: the default manifest
// served directly (200) or a redirect to it (303).
var DefaultNoSwiftVersionStatuses = []int{200, 303}

// AcceptedNoSwiftVersionStatuses returns the configured set or the default.
func (c *FetchPackageReleaseManifestConfig) AcceptedNoSwiftVersionStatuses() []int {
	if len(c.NoSwiftVersionStatuses) > 0 {
		return c.NoSwiftVersionStatuses
	}
	return DefaultNoSwiftVersionStatuses
}

// ManifestRelease is a release whose manifests are checked.
type ManifestRelease struct {
	PackageRelease  ident.PackageRelease `json:"packageRelease" yaml:"packageRelease"`
	SwiftVersions   []string             `json:"swiftVersions,omitempty" yaml:"swiftVersions,omitempty"`
	NoSwiftVersions []string             `json:"noSwiftVersions,omitempty" yaml:"noSwiftVersions,omitempty"`
}

// DownloadSourceArchiveConfig drives GET /{scope}/{name}/{version}.zip.
type DownloadSourceArchiveConfig struct {
	SourceArchives                []SourceArchive        `json:"sourceArchives" yaml:"sourceArchives"`
	UnknownPackageReleases        []ident.PackageRelease `json:"unknownPackageReleases,omitempty" yaml:"unknownPackageReleases,omitempty"`
	ContentLengthHeaderIsSet      bool                   `json:"contentLengthHeaderIsSet" yaml:"contentLengthHeaderIsSet"`
	ContentDispositionHeaderIsSet bool                   `json:"contentDispositionHeaderIsSet" yaml:"contentDispositionHeaderIsSet"`
	DigestHeaderIsSet             bool                   `json:"digestHeaderIsSet" yaml:"digestHeaderIsSet"`
}

// SourceArchive is a release whose archive is downloaded. Checksum is the
// lowercase hex SHA-256 of the archive.
type SourceArchive struct {
	PackageRelease ident.PackageRelease `json:"packageRelease" yaml:"packageRelease"`
	Checksum       string               `json:"checksum" yaml:"checksum"`
}

// LookupPackageIdentifiersConfig drives GET /identifiers?url=.
type LookupPackageIdentifiersConfig struct {
	URLs        []IdentifierLookup `json:"urls" yaml:"urls"`
	UnknownURLs []string           `json:"unknownURLs,omitempty" yaml:"unknownURLs,omitempty"`
}

// IdentifierLookup maps a repository URL to the identities it must resolve to.
type IdentifierLookup struct {
	URL         string   `json:"url" yaml:"url"`
	Identifiers []string `json:"identifiers" yaml:"identifiers"`
}

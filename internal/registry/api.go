// Package registry describes the package registry HTTP API under test:
// request paths, media types and header names.
package registry

import (
	"net/url"

	"github.com/roach88/regcompat/internal/ident"
)

// APIVersion is the registry API version requested and expected in Content-Version.
const APIVersion = "1"

// Media types.
const (
	MediaTypeJSON      = "application/vnd.swift.registry.v" + APIVersion + "+json"
	MediaTypeSwift     = "application/vnd.swift.registry.v" + APIVersion + "+swift"
	MediaTypeZip       = "application/vnd.swift.registry.v" + APIVersion + "+zip"
	ContentTypeJSON    = "application/json"
	ContentTypeProblem = "application/problem+json"
	ContentTypeSwift   = "text/x-swift"
	ContentTypeZip     = "application/zip"
)

// Header names.
const (
	HeaderAccept             = "Accept"
	HeaderAuthorization      = "Authorization"
	HeaderContentVersion     = "Content-Version"
	HeaderContentType        = "Content-Type"
	HeaderContentLength      = "Content-Length"
	HeaderContentDisposition = "Content-Disposition"
	HeaderDigest             = "Digest"
	HeaderLink               = "Link"
	HeaderLocation           = "Location"
	HeaderRetryAfter         = "Retry-After"
)

// Link relations used by the registry.
const (
	RelLatestVersion      = "latest-version"
	RelSuccessorVersion   = "successor-version"
	RelPredecessorVersion = "predecessor-version"
	RelAlternate          = "alternate"
	RelFirst              = "first"
	RelPrevious           = "prev"
	RelNext               = "next"
	RelLast               = "last"
)

// SwiftVersionParameter selects a tool-version specific manifest.
const SwiftVersionParameter = "swift-version"

// Multipart field names of a publish request.
const (
	PartSourceArchive = "source-archive"
	PartMetadata      = "metadata"
)

// ReleasesPath is GET /{scope}/{name}.
func ReleasesPath(p ident.PackageIdentity) string {
	return "/" + url.PathEscape(p.Scope) + "/" + url.PathEscape(p.Name)
}

// ReleasePath is GET or PUT /{scope}/{name}/{version}.
func ReleasePath(r ident.PackageRelease) string {
	return ReleasesPath(r.Package) + "/" + url.PathEscape(r.Version)
}

// ManifestPath is GET /{scope}/{name}/{version}/Package.swift with an
// optional swift-version selector.
func ManifestPath(r ident.PackageRelease, swiftVersion string) string {
	path := ReleasePath(r) + "/Package.swift"
	if swiftVersion != "" {
		path += "?" + url.Values{SwiftVersionParameter: {swiftVersion}}.Encode()
	}
	return path
}

// SourceArchivePath is GET /{scope}/{name}/{version}.zip.
func SourceArchivePath(r ident.PackageRelease) string {
	return ReleasePath(r) + ".zip"
}

// IdentifiersPath is GET /identifiers?url={url}.
func IdentifiersPath(repositoryURL string) string {
	return "/identifiers?" + url.Values{"url": {repositoryURL}}.Encode()
}

// ManifestFilename is the attachment filename of a manifest for the given
// tool version, or of the unqualified manifest when swiftVersion is empty.
func ManifestFilename(swiftVersion string) string {
	if swiftVersion == "" {
		return "Package.swift"
	}
	return "Package@swift-" + swiftVersion + ".swift"
}

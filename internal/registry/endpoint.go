package registry

// Endpoint names one registry endpoint under test. The value doubles as the
// subcommand name.
type Endpoint string

const (
	EndpointCreatePackageRelease        Endpoint = "create-package-release"
	EndpointListPackageReleases         Endpoint = "list-package-releases"
	EndpointFetchPackageReleaseInfo     Endpoint = "fetch-package-release-info"
	EndpointFetchPackageReleaseManifest Endpoint = "fetch-package-release-manifest"
	EndpointDownloadSourceArchive       Endpoint = "download-source-archive"
	EndpointLookupPackageIdentifiers    Endpoint = "lookup-package-identifiers"
)

var endpointTitles = map[Endpoint]string{
	EndpointCreatePackageRelease:        "Create Package Release",
	EndpointListPackageReleases:         "List Package Releases",
	EndpointFetchPackageReleaseInfo:     "Fetch Package Release Information",
	EndpointFetchPackageReleaseManifest: "Fetch Package Release Manifest",
	EndpointDownloadSourceArchive:       "Download Source Archive",
	EndpointLookupPackageIdentifiers:    "Lookup Package Identifiers",
}

// Endpoints returns every endpoint in declaration order.
func Endpoints() []Endpoint {
	return []Endpoint{
		EndpointCreatePackageRelease,
		EndpointListPackageReleases,
		EndpointFetchPackageReleaseInfo,
		EndpointFetchPackageReleaseManifest,
		EndpointDownloadSourceArchive,
		EndpointLookupPackageIdentifiers,
	}
}

// Title is the human readable scenario name, e.g. "Fetch Package Release Manifest".
func (e Endpoint) Title() string {
	if t, ok := endpointTitles[e]; ok {
		return t
	}
	return string(e)
}

// Valid reports whether e is a known endpoint.
func (e Endpoint) Valid() bool {
	_, ok := endpointTitles[e]
	return ok
}

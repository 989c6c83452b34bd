package config

import (
	"fmt"
	"strings"

	"github.com/roach88/regcompat/internal/ident"
)

// Validate checks the configuration. It returns the first problem found as a
// *ConfigError.
func (c *Configuration) Validate() error {
	if len(c.Endpoints()) == 0 {
		return &ConfigError{Message: "configuration has no test sections"}
	}
	checks := []func() error{
		c.validateCreate,
		c.validateList,
		c.validateInfo,
		c.validateManifest,
		c.validateArchive,
		c.validateLookup,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return checkSchema(c)
}

func (c *Configuration) validateCreate() error {
	s := c.CreatePackageRelease
	if s == nil {
		return nil
	}
	const section = "createPackageRelease"
	if len(s.PackageReleases) == 0 {
		return fieldError(section+".packageReleases", "at least one release is required")
	}
	seen := map[ident.PackageRelease]bool{}
	for i, r := range s.PackageReleases {
		field := fmt.Sprintf("%s.packageReleases[%d]", section, i)
		if err := validateRelease(field, r.PackageRelease); err != nil {
			return err
		}
		if err := unique(seen, r.PackageRelease, field); err != nil {
			return err
		}
		if r.SourceArchivePath == "" {
			return fieldError(field, "sourceArchivePath is required")
		}
	}
	if s.MaxProcessingTimeInSeconds < 0 {
		return fieldError(section+".maxProcessingTimeInSeconds", "must not be negative")
	}
	return nil
}

func (c *Configuration) validateList() error {
	s := c.ListPackageReleases
	if s == nil {
		return nil
	}
	const section = "listPackageReleases"
	if len(s.Packages) == 0 {
		return fieldError(section+".packages", "at least one package is required")
	}
	known := map[ident.PackageIdentity]bool{}
	for i, p := range s.Packages {
		field := fmt.Sprintf("%s.packages[%d]", section, i)
		if err := p.Package.Validate(); err != nil {
			return fieldError(field, "%v", err)
		}
		if known[p.Package] {
			return fieldError(field, "%s is listed more than once", p.Package)
		}
		if err := uniqueStrings(field+".versions", p.Versions); err != nil {
			return err
		}
		if p.NumberOfReleases < len(p.Versions) {
			return fieldError(field, "numberOfReleases %d is less than the %d listed versions", p.NumberOfReleases, len(p.Versions))
		}
		known[p.Package] = true
	}
	unknown := map[ident.PackageIdentity]bool{}
	for i, p := range s.UnknownPackages {
		field := fmt.Sprintf("%s.unknownPackages[%d]", section, i)
		if err := p.Validate(); err != nil {
			return fieldError(field, "%v", err)
		}
		if known[p] {
			return fieldError(field, "%s is also listed as a known package", p)
		}
		if err := unique(unknown, p, field); err != nil {
			return err
		}
	}
	return nil
}

func (c *Configuration) validateInfo() error {
	s := c.FetchPackageReleaseInfo
	if s == nil {
		return nil
	}
	const section = "fetchPackageReleaseInfo"
	if len(s.PackageReleases) == 0 {
		return fieldError(section+".packageReleases", "at least one release is required")
	}
	known := map[ident.PackageRelease]bool{}
	for i, r := range s.PackageReleases {
		field := fmt.Sprintf("%s.packageReleases[%d]", section, i)
		if err := validateRelease(field, r.PackageRelease); err != nil {
			return err
		}
		if err := unique(known, r.PackageRelease, field); err != nil {
			return err
		}
	}
	return validateUnknownReleases(section, s.UnknownPackageReleases, known)
}

func (c *Configuration) validateManifest() error {
	s := c.FetchPackageReleaseManifest
	if s == nil {
		return nil
	}
	const section = "fetchPackageReleaseManifest"
	if len(s.PackageReleases) == 0 {
		return fieldError(section+".packageReleases", "at least one release is required")
	}
	known := map[ident.PackageRelease]bool{}
	for i, r := range s.PackageReleases {
		field := fmt.Sprintf("%s.packageReleases[%d]", section, i)
		if err := validateRelease(field, r.PackageRelease); err != nil {
			return err
		}
		if err := unique(known, r.PackageRelease, field); err != nil {
			return err
		}
		if err := uniqueStrings(field+".swiftVersions", r.SwiftVersions); err != nil {
			return err
		}
		if err := uniqueStrings(field+".noSwiftVersions", r.NoSwiftVersions); err != nil {
			return err
		}
		declared := map[string]bool{}
		for _, v := range r.SwiftVersions {
			declared[v] = true
		}
		for _, v := range r.NoSwiftVersions {
			if declared[v] {
				return fieldError(field, "swift version %q is listed in both swiftVersions and noSwiftVersions", v)
			}
		}
	}
	for i, status := range s.NoSwiftVersionStatuses {
		if status < 100 || status > 599 {
			return fieldError(fmt.Sprintf("%s.noSwiftVersionStatuses[%d]", section, i), "%d is not an HTTP status", status)
		}
	}
	return validateUnknownReleases(section, s.UnknownPackageReleases, known)
}

func (c *Configuration) validateArchive() error {
	s := c.DownloadSourceArchive
	if s == nil {
		return nil
	}
	const section = "downloadSourceArchive"
	if len(s.SourceArchives) == 0 {
		return fieldError(section+".sourceArchives", "at least one source archive is required")
	}
	known := map[ident.PackageRelease]bool{}
	for i, a := range s.SourceArchives {
		field := fmt.Sprintf("%s.sourceArchives[%d]", section, i)
		if err := validateRelease(field, a.PackageRelease); err != nil {
			return err
		}
		if err := unique(known, a.PackageRelease, field); err != nil {
			return err
		}
		if a.Checksum == "" {
			return fieldError(field, "checksum is required")
		}
	}
	return validateUnknownReleases(section, s.UnknownPackageReleases, known)
}

func (c *Configuration) validateLookup() error {
	s := c.LookupPackageIdentifiers
	if s == nil {
		return nil
	}
	const section = "lookupPackageIdentifiers"
	if len(s.URLs) == 0 {
		return fieldError(section+".urls", "at least one url is required")
	}
	known := map[string]bool{}
	for i, u := range s.URLs {
		field := fmt.Sprintf("%s.urls[%d]", section, i)
		if strings.TrimSpace(u.URL) == "" {
			return fieldError(field, "url is required")
		}
		if len(u.Identifiers) == 0 {
			return fieldError(field, "at least one identifier is required")
		}
		for _, id := range u.Identifiers {
			if _, err := ident.ParseIdentity(id); err != nil {
				return fieldError(field, "%v", err)
			}
		}
		if err := unique(known, u.URL, field); err != nil {
			return err
		}
	}
	unknown := map[string]bool{}
	for i, u := range s.UnknownURLs {
		field := fmt.Sprintf("%s.unknownURLs[%d]", section, i)
		if known[u] {
			return fieldError(field, "%s is also listed as a known url", u)
		}
		if err := unique(unknown, u, field); err != nil {
			return err
		}
	}
	return nil
}

func validateRelease(field string, r ident.PackageRelease) error {
	if err := r.Validate(); err != nil {
		return fieldError(field, "%v", err)
	}
	return nil
}

// unique marks key as seen and fails if it already was. Each entry becomes
// a scenario variant, and variants are keyed by these values.
func unique[K comparable](seen map[K]bool, key K, field string) error {
	if seen[key] {
		return fieldError(field, "%v is listed more than once", key)
	}
	seen[key] = true
	return nil
}

func uniqueStrings(field string, values []string) error {
	seen := make(map[string]bool, len(values))
	for i, v := range values {
		if err := unique(seen, v, fmt.Sprintf("%s[%d]", field, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateUnknownReleases(section string, unknown []ident.PackageRelease, known map[ident.PackageRelease]bool) error {
	seen := map[ident.PackageRelease]bool{}
	for i, r := range unknown {
		field := fmt.Sprintf("%s.unknownPackageReleases[%d]", section, i)
		if err := validateRelease(field, r); err != nil {
			return err
		}
		if known[r] {
			return fieldError(field, "%s is also listed as a known release", r)
		}
		if err := unique(seen, r, field); err != nil {
			return err
		}
	}
	return nil
}

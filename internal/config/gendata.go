package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/provision"
	"github.com/roach88/regcompat/internal/registry"
)

// GenerateConfig describes test data to publish before a run. Scopes are
// derived from ScopePrefix plus a random suffix so that every run works on
// releases it created itself.
type GenerateConfig struct {
	Packages []SeedPackage `json:"packages" yaml:"packages"`

	CreatePackageRelease        *CreateOptions   `json:"createPackageRelease,omitempty" yaml:"createPackageRelease,omitempty"`
	ListPackageReleases         *ListOptions     `json:"listPackageReleases,omitempty" yaml:"listPackageReleases,omitempty"`
	FetchPackageReleaseInfo     *Enabled         `json:"fetchPackageReleaseInfo,omitempty" yaml:"fetchPackageReleaseInfo,omitempty"`
	FetchPackageReleaseManifest *ManifestOptions `json:"fetchPackageReleaseManifest,omitempty" yaml:"fetchPackageReleaseManifest,omitempty"`
	DownloadSourceArchive       *ArchiveOptions  `json:"downloadSourceArchive,omitempty" yaml:"downloadSourceArchive,omitempty"`
	LookupPackageIdentifiers    *Enabled         `json:"lookupPackageIdentifiers,omitempty" yaml:"lookupPackageIdentifiers,omitempty"`
}

// SeedPackage is a package whose releases get published.
type SeedPackage struct {
	ScopePrefix    string        `json:"scopePrefix" yaml:"scopePrefix"`
	Name           string        `json:"name" yaml:"name"`
	RepositoryURLs []string      `json:"repositoryURLs,omitempty" yaml:"repositoryURLs,omitempty"`
	Releases       []SeedRelease `json:"releases" yaml:"releases"`
}

// SeedRelease is one release of a SeedPackage. Paths are relative to the
// generate configuration file.
type SeedRelease struct {
	Version           string         `json:"version" yaml:"version"`
	SourceArchivePath string         `json:"sourceArchivePath" yaml:"sourceArchivePath"`
	MetadataPath      string         `json:"metadataPath,omitempty" yaml:"metadataPath,omitempty"`
	Checksum          string         `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	SwiftVersions     []string       `json:"swiftVersions,omitempty" yaml:"swiftVersions,omitempty"`
	NoSwiftVersions   []string       `json:"noSwiftVersions,omitempty" yaml:"noSwiftVersions,omitempty"`
	KeyValues         map[string]any `json:"keyValues,omitempty" yaml:"keyValues,omitempty"`
}

// Enabled turns on an endpoint that has no options.
type Enabled struct{}

type CreateOptions struct {
	MaxProcessingTimeInSeconds int `json:"maxProcessingTimeInSeconds,omitempty" yaml:"maxProcessingTimeInSeconds,omitempty"`
}

type ListOptions struct {
	PackageURLProvided  bool `json:"packageURLProvided" yaml:"packageURLProvided"`
	ProblemProvided     bool `json:"problemProvided" yaml:"problemProvided"`
	PaginationSupported bool `json:"paginationSupported" yaml:"paginationSupported"`
}

type ManifestOptions struct {
	ContentLengthHeaderIsSet        bool  `json:"contentLengthHeaderIsSet" yaml:"contentLengthHeaderIsSet"`
	ContentDispositionHeaderIsSet   bool  `json:"contentDispositionHeaderIsSet" yaml:"contentDispositionHeaderIsSet"`
	LinkHeaderHasAlternateRelations bool  `json:"linkHeaderHasAlternateRelations" yaml:"linkHeaderHasAlternateRelations"`
	NoSwiftVersionStatuses          []int `json:"noSwiftVersionStatuses,omitempty" yaml:"noSwiftVersionStatuses,omitempty"`
}

type ArchiveOptions struct {
	ContentLengthHeaderIsSet      bool `json:"contentLengthHeaderIsSet" yaml:"contentLengthHeaderIsSet"`
	ContentDispositionHeaderIsSet bool `json:"contentDispositionHeaderIsSet" yaml:"contentDispositionHeaderIsSet"`
	DigestHeaderIsSet             bool `json:"digestHeaderIsSet" yaml:"digestHeaderIsSet"`
}

// LoadGenerateConfig reads a generate configuration.
func LoadGenerateConfig(path string) (*GenerateConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "failed to read generate configuration", Err: err}
	}
	var gen GenerateConfig
	if err := decode(data, FormatForPath(path), &gen); err != nil {
		return nil, &ConfigError{Path: path, Message: "failed to parse generate configuration", Err: err}
	}
	if err := gen.Validate(); err != nil {
		if ce, ok := err.(*ConfigError); ok {
			ce.Path = path
		}
		return nil, err
	}
	return &gen, nil
}

// Validate checks the generate configuration.
func (g *GenerateConfig) Validate() error {
	if len(g.Packages) == 0 {
		return fieldError("packages", "at least one package is required")
	}
	if g.CreatePackageRelease == nil && g.ListPackageReleases == nil && g.FetchPackageReleaseInfo == nil &&
		g.FetchPackageReleaseManifest == nil && g.DownloadSourceArchive == nil && g.LookupPackageIdentifiers == nil {
		return &ConfigError{Message: "generate configuration enables no endpoint"}
	}
	for i, p := range g.Packages {
		field := fmt.Sprintf("packages[%d]", i)
		if p.ScopePrefix == "" {
			return fieldError(field, "scopePrefix is required")
		}
		if err := (ident.PackageIdentity{Scope: p.ScopePrefix + "-" + "000000", Name: p.Name}).Validate(); err != nil {
			return fieldError(field, "%v", err)
		}
		if len(p.Releases) == 0 {
			return fieldError(field+".releases", "at least one release is required")
		}
		seen := map[string]bool{}
		for j, r := range p.Releases {
			rf := fmt.Sprintf("%s.releases[%d]", field, j)
			if r.Version == "" {
				return fieldError(rf, "version is required")
			}
			if seen[r.Version] {
				return fieldError(rf, "duplicate version %q", r.Version)
			}
			seen[r.Version] = true
			if r.SourceArchivePath == "" {
				return fieldError(rf, "sourceArchivePath is required")
			}
		}
	}
	return nil
}

// SuffixGenerator produces the random part of generated scopes.
type SuffixGenerator interface {
	Suffix() string
}

// UUIDSuffixes takes the first six hex characters of a random UUID.
type UUIDSuffixes struct{}

// Suffix implements SuffixGenerator.
func (UUIDSuffixes) Suffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// Derived is the outcome of Derive: a verify configuration and the
// releases each endpoint needs published before its scenario runs.
type Derived struct {
	Config     *Configuration
	Provisions map[registry.Endpoint][]provision.Release
}

// Derive turns a generate configuration into a run configuration. Relative
// paths are resolved against baseDir. Release checksums that are not given
// are computed from the archives.
func Derive(gen *GenerateConfig, baseDir string, suffixes SuffixGenerator) (*Derived, error) {
	if err := gen.Validate(); err != nil {
		return nil, err
	}

	seeds, err := loadSeeds(gen, baseDir, suffixes)
	if err != nil {
		return nil, err
	}

	unknownScope := "test-" + suffixes.Suffix()
	unknownPackage := ident.PackageIdentity{Scope: unknownScope, Name: "unknown"}
	unknownRelease := ident.PackageRelease{Package: unknownPackage, Version: "1.0.0"}

	cfg := &Configuration{}
	provisions := map[registry.Endpoint][]provision.Release{}

	var all []provision.Release
	for _, s := range seeds {
		all = append(all, s.provisions()...)
	}

	if gen.CreatePackageRelease != nil {
		// Publication needs releases that do not exist yet, so it gets
		// scopes of its own.
		section := &CreatePackageReleaseConfig{
			MaxProcessingTimeInSeconds: gen.CreatePackageRelease.MaxProcessingTimeInSeconds,
		}
		for _, s := range seeds {
			scope := s.seed.ScopePrefix + "-" + suffixes.Suffix()
			for _, r := range s.releases {
				section.PackageReleases = append(section.PackageReleases, PublishRelease{
					PackageRelease:    ident.PackageRelease{Package: ident.PackageIdentity{Scope: scope, Name: s.seed.Name}, Version: r.seed.Version},
					SourceArchivePath: r.archivePath,
					MetadataPath:      r.metadataPath,
				})
			}
		}
		cfg.CreatePackageRelease = section
	}

	if opts := gen.ListPackageReleases; opts != nil {
		section := &ListPackageReleasesConfig{
			UnknownPackages:     []ident.PackageIdentity{unknownPackage},
			PackageURLProvided:  opts.PackageURLProvided,
			ProblemProvided:     opts.ProblemProvided,
			PaginationSupported: opts.PaginationSupported,
		}
		for _, s := range seeds {
			section.Packages = append(section.Packages, ListPackage{
				Package:          s.identity,
				NumberOfReleases: len(s.releases),
				Versions:         s.versions(),
				LinkRelations:    []string{registry.RelLatestVersion},
			})
		}
		cfg.ListPackageReleases = section
		provisions[registry.EndpointListPackageReleases] = all
	}

	if gen.FetchPackageReleaseInfo != nil {
		section := &FetchPackageReleaseInfoConfig{
			UnknownPackageReleases: []ident.PackageRelease{unknownRelease},
		}
		for _, s := range seeds {
			versions := s.versions()
			for _, r := range s.releases {
				rels := []string{registry.RelLatestVersion}
				pred, succ := registry.Neighbors(versions, r.seed.Version)
				if succ != "" {
					rels = append(rels, registry.RelSuccessorVersion)
				}
				if pred != "" {
					rels = append(rels, registry.RelPredecessorVersion)
				}
				section.PackageReleases = append(section.PackageReleases, InfoRelease{
					PackageRelease: s.release(r),
					Resources: []Resource{{
						Name:     registry.PartSourceArchive,
						Type:     registry.ContentTypeZip,
						Checksum: r.checksum,
					}},
					KeyValues:     r.seed.KeyValues,
					LinkRelations: rels,
				})
			}
		}
		cfg.FetchPackageReleaseInfo = section
		provisions[registry.EndpointFetchPackageReleaseInfo] = all
	}

	if opts := gen.FetchPackageReleaseManifest; opts != nil {
		section := &FetchPackageReleaseManifestConfig{
			UnknownPackageReleases:          []ident.PackageRelease{unknownRelease},
			ContentLengthHeaderIsSet:        opts.ContentLengthHeaderIsSet,
			ContentDispositionHeaderIsSet:   opts.ContentDispositionHeaderIsSet,
			LinkHeaderHasAlternateRelations: opts.LinkHeaderHasAlternateRelations,
			NoSwiftVersionStatuses:          opts.NoSwiftVersionStatuses,
		}
		for _, s := range seeds {
			for _, r := range s.releases {
				section.PackageReleases = append(section.PackageReleases, ManifestRelease{
					PackageRelease:  s.release(r),
					SwiftVersions:   r.seed.SwiftVersions,
					NoSwiftVersions: r.seed.NoSwiftVersions,
				})
			}
		}
		cfg.FetchPackageReleaseManifest = section
		provisions[registry.EndpointFetchPackageReleaseManifest] = all
	}

	if opts := gen.DownloadSourceArchive; opts != nil {
		section := &DownloadSourceArchiveConfig{
			UnknownPackageReleases:        []ident.PackageRelease{unknownRelease},
			ContentLengthHeaderIsSet:      opts.ContentLengthHeaderIsSet,
			ContentDispositionHeaderIsSet: opts.ContentDispositionHeaderIsSet,
			DigestHeaderIsSet:             opts.DigestHeaderIsSet,
		}
		for _, s := range seeds {
			for _, r := range s.releases {
				section.SourceArchives = append(section.SourceArchives, SourceArchive{
					PackageRelease: s.release(r),
					Checksum:       r.checksum,
				})
			}
		}
		cfg.DownloadSourceArchive = section
		provisions[registry.EndpointDownloadSourceArchive] = all
	}

	if gen.LookupPackageIdentifiers != nil {
		section := &LookupPackageIdentifiersConfig{
			UnknownURLs: []string{"https://github.com/" + unknownScope + "/unknown"},
		}
		for _, s := range seeds {
			for _, u := range s.seed.RepositoryURLs {
				section.URLs = append(section.URLs, IdentifierLookup{
					URL:         u,
					Identifiers: []string{s.identity.String()},
				})
			}
		}
		if len(section.URLs) == 0 {
			return nil, fieldError("lookupPackageIdentifiers", "no package declares repositoryURLs")
		}
		cfg.LookupPackageIdentifiers = section
		provisions[registry.EndpointLookupPackageIdentifiers] = all
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Derived{Config: cfg, Provisions: provisions}, nil
}

type seededPackage struct {
	seed     SeedPackage
	identity ident.PackageIdentity
	releases []seededRelease
}

type seededRelease struct {
	seed         SeedRelease
	archivePath  string
	metadataPath string
	metadata     []byte
	checksum     string
}

func (s seededPackage) release(r seededRelease) ident.PackageRelease {
	return ident.PackageRelease{Package: s.identity, Version: r.seed.Version}
}

func (s seededPackage) versions() []string {
	out := make([]string, len(s.releases))
	for i, r := range s.releases {
		out[i] = r.seed.Version
	}
	return out
}

func (s seededPackage) provisions() []provision.Release {
	out := make([]provision.Release, len(s.releases))
	for i, r := range s.releases {
		out[i] = provision.Release{
			Release:     s.release(r),
			ArchivePath: r.archivePath,
			Metadata:    r.metadata,
		}
	}
	return out
}

func loadSeeds(gen *GenerateConfig, baseDir string, suffixes SuffixGenerator) ([]seededPackage, error) {
	seeds := make([]seededPackage, 0, len(gen.Packages))
	for i, p := range gen.Packages {
		field := fmt.Sprintf("packages[%d]", i)
		sp := seededPackage{
			seed:     p,
			identity: ident.PackageIdentity{Scope: p.ScopePrefix + "-" + suffixes.Suffix(), Name: p.Name},
		}
		for j, r := range p.Releases {
			rf := fmt.Sprintf("%s.releases[%d]", field, j)
			sr := seededRelease{
				seed:        r,
				archivePath: resolvePath(baseDir, r.SourceArchivePath),
				checksum:    strings.ToLower(r.Checksum),
			}
			if sr.checksum == "" {
				sum, err := fileChecksum(sr.archivePath)
				if err != nil {
					return nil, &ConfigError{Field: rf, Message: "failed to checksum source archive", Err: err}
				}
				sr.checksum = sum
			}
			if r.MetadataPath != "" {
				sr.metadataPath = resolvePath(baseDir, r.MetadataPath)
				data, err := os.ReadFile(sr.metadataPath)
				if err != nil {
					return nil, &ConfigError{Field: rf, Message: "failed to read metadata", Err: err}
				}
				sr.metadata = data
			} else if len(p.RepositoryURLs) > 0 {
				data, err := json.Marshal(map[string]any{"repositoryURLs": p.RepositoryURLs})
				if err != nil {
					return nil, fmt.Errorf("encode metadata: %w", err)
				}
				sr.metadata = data
			}
			sp.releases = append(sp.releases, sr)
		}
		seeds = append(seeds, sp)
	}
	return seeds, nil
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// fileChecksum is the lowercase hex SHA-256 of the file, the checksum form
// registries publish for source archives.
func fileChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

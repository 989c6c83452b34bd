package provision

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/regcompat/internal/ident"
)

// Release is a release to make exist, together with what is needed to
// publish it.
type Release struct {
	Release     ident.PackageRelease
	ArchivePath string

	// Metadata is the JSON document sent as the metadata part. It may be empty.
	Metadata []byte
}

// LoadRelease reads the metadata document of a release to publish. An
// empty metadataPath yields a release without metadata.
func LoadRelease(r ident.PackageRelease, archivePath, metadataPath string) (Release, error) {
	rel := Release{Release: r, ArchivePath: archivePath}
	if metadataPath == "" {
		return rel, nil
	}
	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return Release{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	rel.Metadata = data
	return rel, nil
}

// Provisioner ensures releases exist on the target registry.
type Provisioner interface {
	// EnsureRelease returns nil once the release is confirmed to exist.
	EnsureRelease(ctx context.Context, r Release) error
}

// Nop assumes every release already exists. Verify runs against prepared
// registries use it.
type Nop struct{}

// EnsureRelease implements Provisioner.
func (Nop) EnsureRelease(context.Context, Release) error {
	return nil
}

// SetupError reports a release that could not be provisioned.
type SetupError struct {
	Release ident.PackageRelease
	Err     error
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	return fmt.Sprintf("failed to provision %s: %v", e.Release, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

package ident

import (
	"fmt"
	"regexp"
	"strings"
)

// Registry identifier grammar.
// Scopes are alphanumeric with single interior hyphens, at most 39 characters.
// Names are alphanumeric with hyphens or underscores, at most 100 characters.
const (
	maxScopeLength = 39
	maxNameLength  = 100
)

var (
	scopeCharacters = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	namePattern     = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
)

// PackageIdentity names a package on a registry.
type PackageIdentity struct {
	Scope string `json:"scope" yaml:"scope"`
	Name  string `json:"name" yaml:"name"`
}

// String returns the identity in "scope.name" form.
func (p PackageIdentity) String() string {
	return p.Scope + "." + p.Name
}

// Validate checks scope and name against the registry identifier grammar.
func (p PackageIdentity) Validate() error {
	if err := validateScope(p.Scope); err != nil {
		return err
	}
	return validateName(p.Name)
}

// ParseIdentity parses "scope.name". The split happens on the first dot.
func ParseIdentity(s string) (PackageIdentity, error) {
	scope, name, ok := strings.Cut(s, ".")
	if !ok {
		return PackageIdentity{}, fmt.Errorf("invalid package identity %q: expected scope.name", s)
	}
	id := PackageIdentity{Scope: scope, Name: name}
	if err := id.Validate(); err != nil {
		return PackageIdentity{}, err
	}
	return id, nil
}

func validateScope(scope string) error {
	switch {
	case scope == "":
		return fmt.Errorf("scope is required")
	case len(scope) > maxScopeLength:
		return fmt.Errorf("scope %q exceeds %d characters", scope, maxScopeLength)
	case !scopeCharacters.MatchString(scope):
		return fmt.Errorf("scope %q contains characters other than letters, digits and hyphens", scope)
	case strings.HasPrefix(scope, "-") || strings.HasSuffix(scope, "-"):
		return fmt.Errorf("scope %q must not start or end with a hyphen", scope)
	case strings.Contains(scope, "--"):
		return fmt.Errorf("scope %q must not contain consecutive hyphens", scope)
	}
	return nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name is required")
	case len(name) > maxNameLength:
		return fmt.Errorf("name %q exceeds %d characters", name, maxNameLength)
	case !namePattern.MatchString(name):
		return fmt.Errorf("name %q does not match %s", name, namePattern.String())
	}
	return nil
}

// PackageRelease is a published version of a package.
// Versions are opaque strings unless a check needs semantic ordering.
type PackageRelease struct {
	Package PackageIdentity `json:"package" yaml:"package"`
	Version string          `json:"version" yaml:"version"`
}

// String returns "scope.name@version".
func (r PackageRelease) String() string {
	return r.Package.String() + "@" + r.Version
}

// Validate checks the identity and that a version is present.
func (r PackageRelease) Validate() error {
	if err := r.Package.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Version) == "" {
		return fmt.Errorf("release %s: version is required", r.Package)
	}
	return nil
}

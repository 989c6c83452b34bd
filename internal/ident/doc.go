// Package ident provides the value types that name things on a package
// registry: package identities, releases and authentication tokens.
//
// This package imports nothing internal. Every other package builds requests
// and expectations from these types.
//
// Key constraints:
//   - PackageIdentity is comparable and used directly as a map key
//   - String() of an identity is always "scope.name"
//   - ParseAuthToken never panics; malformed input yields ok == false
//   - An auth token secret is kept byte-for-byte, colons included
package ident

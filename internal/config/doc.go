// Package config loads, validates and saves the test configuration.
//
// A Configuration has one optional section per registry endpoint. Sections
// hold the releases the target registry is known to have, releases it is
// guaranteed not to have, and the toggles for optional checks.
//
// # File Formats
//
// The format is picked by extension:
//
//   - .json and .jsonc: JSON, with // and /* */ comments and trailing
//     commas allowed
//   - .yaml and .yml: YAML
//
// Field names are identical in both formats:
//
//	{
//	  "fetchPackageReleaseManifest": {
//	    "packageReleases": [
//	      {
//	        "packageRelease": {"package": {"scope": "mona", "name": "LinkedList"}, "version": "1.1.1"},
//	        "swiftVersions": ["4.2"],
//	        "noSwiftVersions": ["5.0"]
//	      }
//	    ],
//	    "unknownPackageReleases": [{"package": {"scope": "test-x", "name": "unknown"}, "version": "1.0.0"}],
//	    "contentLengthHeaderIsSet": true,
//	    "contentDispositionHeaderIsSet": true,
//	    "linkHeaderHasAlternateRelations": true
//	  }
//	}
//
// Unknown fields are rejected. A decoded document is checked twice: by Go
// validation (identity grammar, disjoint known/unknown sets) and by an
// embedded CUE schema. Every failure is a *ConfigError and aborts the run
// before any request is made.
//
// # Generated Data
//
// GenerateConfig describes seed packages and their source archives. Derive
// turns it into a Configuration with randomized scopes plus the releases that
// must be provisioned before each endpoint's scenario runs.
package config

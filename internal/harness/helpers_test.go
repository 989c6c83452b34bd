package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/provision"
	"github.com/roach88/regcompat/internal/report"
	"github.com/roach88/regcompat/internal/testutil"
)

const repositoryURL = "https://github.com/mona/LinkedList"

// generateConfig seeds mona.LinkedList 1.0.0 (Swift 4.2 variant) and 1.1.1
// (Swift 4.2 and 5.3 variants) and enables every endpoint.
func generateConfig(t *testing.T) *config.GenerateConfig {
	t.Helper()
	dir := t.TempDir()
	return &config.GenerateConfig{
		Packages: []config.SeedPackage{{
			ScopePrefix:    "mona",
			Name:           "LinkedList",
			RepositoryURLs: []string{repositoryURL},
			Releases: []config.SeedRelease{
				{
					Version:           "1.0.0",
					SourceArchivePath: testutil.WriteArchive(t, dir, "LinkedList-1.0.0.zip", "LinkedList", "4.2"),
					SwiftVersions:     []string{"4.2"},
					NoSwiftVersions:   []string{"5.9"},
				},
				{
					Version:           "1.1.1",
					SourceArchivePath: testutil.WriteArchive(t, dir, "LinkedList-1.1.1.zip", "LinkedList", "4.2", "5.3"),
					SwiftVersions:     []string{"4.2", "5.3"},
					NoSwiftVersions:   []string{"5.9"},
				},
			},
		}},
		CreatePackageRelease: &config.CreateOptions{MaxProcessingTimeInSeconds: 5},
		ListPackageReleases: &config.ListOptions{
			PackageURLProvided: true,
		},
		FetchPackageReleaseInfo: &config.Enabled{},
		FetchPackageReleaseManifest: &config.ManifestOptions{
			ContentLengthHeaderIsSet:        true,
			ContentDispositionHeaderIsSet:   true,
			LinkHeaderHasAlternateRelations: true,
		},
		DownloadSourceArchive: &config.ArchiveOptions{
			ContentLengthHeaderIsSet:      true,
			ContentDispositionHeaderIsSet: true,
			DigestHeaderIsSet:             true,
		},
		LookupPackageIdentifiers: &config.Enabled{},
	}
}

func derive(t *testing.T, gen *config.GenerateConfig) *config.Derived {
	t.Helper()
	d, err := config.Derive(gen, "", testutil.NewFixedSuffixes("abcdef", "xxxxxx", "fedcba"))
	require.NoError(t, err)
	return d
}

type rig struct {
	registry  *testutil.FakeRegistry
	client    *probe.Client
	publisher *provision.Publisher
	derived   *config.Derived
}

func newRig(t *testing.T, behavior testutil.RegistryBehavior, opts ...provision.PublisherOption) *rig {
	t.Helper()
	reg := testutil.NewFakeRegistry(t, behavior)
	client, err := probe.New(reg.URL())
	require.NoError(t, err)
	opts = append([]provision.PublisherOption{provision.WithPolling(0, 0)}, opts...)
	return &rig{
		registry:  reg,
		client:    client,
		publisher: provision.NewPublisher(client, opts...),
		derived:   derive(t, generateConfig(t)),
	}
}

func (r *rig) run(t *testing.T, ctrlOpts []ControllerOption, runnerOpts ...RunnerOption) *report.Report {
	t.Helper()
	runner := NewRunner(r.client, r.publisher, runnerOpts...)
	ctrl := NewController(runner, ModeVerify, ctrlOpts...)
	rep, err := ctrl.Run(context.Background(), Plan(r.derived.Config, r.derived.Provisions))
	require.NoError(t, err)
	return rep
}

func requirePass(t *testing.T, rep *report.Report) {
	t.Helper()
	for _, f := range rep.Failures() {
		t.Errorf("%s: %s: %s", f.Scenario, f.Outcome.Description, f.Outcome.Detail)
	}
	require.True(t, rep.Pass)
}

func outcomeDescriptions(s report.ScenarioResult) []string {
	out := make([]string, len(s.Outcomes))
	for i, o := range s.Outcomes {
		out[i] = o.Description
	}
	return out
}

var linkedList111 = ident.PackageRelease{
	Package: ident.PackageIdentity{Scope: "mona-abcdef", Name: "LinkedList"},
	Version: "1.1.1",
}

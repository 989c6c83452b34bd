package testutil

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/registry"
)

// RegistryBehavior switches the fake registry between a compliant server
// and specific deviations.
type RegistryBehavior struct {
	// AsyncPublish answers publication with 202 Accepted and a processing
	// Location that reports 202 for ProcessingPolls polls before finishing.
	AsyncPublish    bool
	ProcessingPolls int
	// FailProcessing ends asynchronous processing with 422.
	FailProcessing bool

	// Authorization, when set, is the required Authorization header value.
	Authorization string

	// PageSize limits list responses and adds first/next/last links.
	PageSize int

	OmitContentVersion     bool
	OmitContentLength      bool
	OmitContentDisposition bool
	OmitDigest             bool
	OmitAlternateLinks     bool
	OmitReleaseLinks       bool

	// PlainTextErrors answers errors with text/plain instead of a problem
	// details document.
	PlainTextErrors bool

	// ServeMissingManifestVariant answers a request for an absent tool
	// version with the unqualified manifest instead of a 303 redirect.
	ServeMissingManifestVariant bool
}

// FakeRegistry is an in-memory package registry served over httptest.
// It is safe for concurrent use.
type FakeRegistry struct {
	server   *httptest.Server
	behavior RegistryBehavior

	mu       sync.Mutex
	packages map[string]*fakePackage
	jobs     map[string]*fakeJob
	nextJob  int
	requests []string
}

type fakePackage struct {
	identity ident.PackageIdentity
	releases map[string]*fakeRelease
}

type fakeRelease struct {
	version   string
	archive   []byte
	checksum  string
	metadata  map[string]any
	manifests map[string][]byte
}

type fakeJob struct {
	release   ident.PackageRelease
	pending   *fakeRelease
	remaining int
}

// NewFakeRegistry starts a fake registry that is closed when the test ends.
func NewFakeRegistry(t testing.TB, behavior RegistryBehavior) *FakeRegistry {
	t.Helper()
	f := &FakeRegistry{
		behavior: behavior,
		packages: map[string]*fakePackage{},
		jobs:     map[string]*fakeJob{},
	}
	f.server = httptest.NewServer(f.Handler())
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the registry.
func (f *FakeRegistry) URL() string {
	return f.server.URL
}

// Requests returns "METHOD path" for every request served so far, in
// arrival order.
func (f *FakeRegistry) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Seed stores a release directly, bypassing publication.
func (f *FakeRegistry) Seed(r ident.PackageRelease, archive, metadata []byte) error {
	rel, err := newFakeRelease(r.Version, archive, metadata)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookup(r) != nil {
		return fmt.Errorf("release %s already exists", r)
	}
	f.store(r, rel)
	return nil
}

// Has reports whether r has been published.
func (f *FakeRegistry) Has(r ident.PackageRelease) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookup(r) != nil
}

func newFakeRelease(version string, archive, metadata []byte) (*fakeRelease, error) {
	manifests, err := ArchiveManifests(archive)
	if err != nil {
		return nil, err
	}
	meta := map[string]any{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return nil, fmt.Errorf("invalid metadata: %w", err)
		}
	}
	sum := sha256.Sum256(archive)
	return &fakeRelease{
		version:   version,
		archive:   archive,
		checksum:  hex.EncodeToString(sum[:]),
		metadata:  meta,
		manifests: manifests,
	}, nil
}

func packageKey(p ident.PackageIdentity) string {
	return strings.ToLower(p.String())
}

// lookup requires f.mu.
func (f *FakeRegistry) lookup(r ident.PackageRelease) *fakeRelease {
	pkg, ok := f.packages[packageKey(r.Package)]
	if !ok {
		return nil
	}
	return pkg.releases[r.Version]
}

// store requires f.mu.
func (f *FakeRegistry) store(r ident.PackageRelease, rel *fakeRelease) {
	key := packageKey(r.Package)
	pkg, ok := f.packages[key]
	if !ok {
		pkg = &fakePackage{identity: r.Package, releases: map[string]*fakeRelease{}}
		f.packages[key] = pkg
	}
	pkg.releases[r.Version] = rel
}

// pending requires f.mu.
func (f *FakeRegistry) pending(r ident.PackageRelease) bool {
	for _, job := range f.jobs {
		if job.pending != nil && packageKey(job.release.Package) == packageKey(r.Package) && job.release.Version == r.Version {
			return true
		}
	}
	return false
}

// Handler returns the registry's HTTP handler.
func (f *FakeRegistry) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record, f.authorize, f.versioned)

	r.Get("/identifiers", f.lookupIdentifiers)
	r.Get("/processing/{id}", f.processing)
	r.Get("/{scope}/{name}", f.listReleases)
	r.Get("/{scope}/{name}/{version}", f.releaseOrArchive)
	r.Put("/{scope}/{name}/{version}", f.publish)
	r.Get("/{scope}/{name}/{version}/Package.swift", f.manifest)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		f.problem(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	return r
}

func (f *FakeRegistry) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeRegistry) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.behavior.Authorization != "" && r.Header.Get(registry.HeaderAuthorization) != f.behavior.Authorization {
			f.problem(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeRegistry) versioned(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !f.behavior.OmitContentVersion {
			w.Header().Set(registry.HeaderContentVersion, registry.APIVersion)
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeRegistry) problem(w http.ResponseWriter, status int, detail string) {
	if f.behavior.PlainTextErrors {
		w.Header().Set(registry.HeaderContentType, "text/plain; charset=utf-8")
		w.WriteHeader(status)
		io.WriteString(w, detail)
		return
	}
	body, _ := json.Marshal(map[string]any{"status": status, "detail": detail})
	w.Header().Set(registry.HeaderContentType, registry.ContentTypeProblem)
	w.WriteHeader(status)
	w.Write(body)
}

func (f *FakeRegistry) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		f.problem(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set(registry.HeaderContentType, registry.ContentTypeJSON)
	w.WriteHeader(status)
	w.Write(body)
}

// writeBody writes a complete body. Without a Content-Length the response
// is flushed before the body so that net/http streams it chunked.
func (f *FakeRegistry) writeBody(w http.ResponseWriter, body []byte) {
	if f.behavior.OmitContentLength {
		w.WriteHeader(http.StatusOK)
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
	} else {
		w.Header().Set(registry.HeaderContentLength, strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
	}
	w.Write(body)
}

func (f *FakeRegistry) baseURL(r *http.Request) string {
	return "http://" + r.Host
}

func linkValue(target, rel string, params ...string) string {
	v := "<" + target + `>; rel="` + rel + `"`
	for i := 0; i+1 < len(params); i += 2 {
		v += "; " + params[i] + `="` + params[i+1] + `"`
	}
	return v
}

func requestIdentity(r *http.Request) ident.PackageIdentity {
	return ident.PackageIdentity{Scope: chi.URLParam(r, "scope"), Name: chi.URLParam(r, "name")}
}

func (f *FakeRegistry) publish(w http.ResponseWriter, r *http.Request) {
	release := ident.PackageRelease{Package: requestIdentity(r), Version: chi.URLParam(r, "version")}
	if err := release.Validate(); err != nil {
		f.problem(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		f.problem(w, http.StatusUnsupportedMediaType, "expected multipart/form-data: "+err.Error())
		return
	}
	file, _, err := r.FormFile(registry.PartSourceArchive)
	if err != nil {
		f.problem(w, http.StatusUnprocessableEntity, "source-archive part is missing")
		return
	}
	archive, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		f.problem(w, http.StatusBadRequest, err.Error())
		return
	}
	rel, err := newFakeRelease(release.Version, archive, []byte(r.FormValue(registry.PartMetadata)))
	if err != nil {
		f.problem(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookup(release) != nil || f.pending(release) {
		f.problem(w, http.StatusConflict, fmt.Sprintf("release %s already exists", release))
		return
	}
	releaseURL := f.baseURL(r) + registry.ReleasePath(release)
	if !f.behavior.AsyncPublish {
		f.store(release, rel)
		w.Header().Set(registry.HeaderLocation, releaseURL)
		f.writeJSON(w, http.StatusCreated, map[string]any{})
		return
	}
	f.nextJob++
	id := strconv.Itoa(f.nextJob)
	f.jobs[id] = &fakeJob{release: release, pending: rel, remaining: f.behavior.ProcessingPolls}
	w.Header().Set(registry.HeaderLocation, f.baseURL(r)+"/processing/"+id)
	w.Header().Set(registry.HeaderRetryAfter, "0")
	w.WriteHeader(http.StatusAccepted)
}

func (f *FakeRegistry) processing(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[chi.URLParam(r, "id")]
	if !ok {
		f.problem(w, http.StatusNotFound, "unknown processing job")
		return
	}
	if job.remaining > 0 {
		job.remaining--
		w.Header().Set(registry.HeaderRetryAfter, "0")
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if f.behavior.FailProcessing {
		job.pending = nil
		f.problem(w, http.StatusUnprocessableEntity, fmt.Sprintf("release %s failed processing", job.release))
		return
	}
	if job.pending != nil {
		f.store(job.release, job.pending)
		job.pending = nil
	}
	w.Header().Set(registry.HeaderLocation, f.baseURL(r)+registry.ReleasePath(job.release))
	w.WriteHeader(http.StatusMovedPermanently)
}

func (f *FakeRegistry) listReleases(w http.ResponseWriter, r *http.Request) {
	id := requestIdentity(r)
	f.mu.Lock()
	pkg, ok := f.packages[packageKey(id)]
	var versions []string
	if ok {
		for v := range pkg.releases {
			versions = append(versions, v)
		}
	}
	f.mu.Unlock()
	if !ok || len(versions) == 0 {
		f.problem(w, http.StatusNotFound, fmt.Sprintf("package %s not found", id))
		return
	}

	// Newest first, as registries conventionally list releases.
	sorted := registry.SortVersions(versions)
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}

	base := f.baseURL(r)
	var links []string
	if !f.behavior.OmitReleaseLinks {
		links = append(links, linkValue(base+registry.ReleasePath(ident.PackageRelease{Package: id, Version: sorted[0]}), registry.RelLatestVersion))
	}

	page := sorted
	if size := f.behavior.PageSize; size > 0 && len(sorted) > size {
		pages := (len(sorted) + size - 1) / size
		n, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if n < 1 {
			n = 1
		}
		if n > pages {
			n = pages
		}
		end := min(n*size, len(sorted))
		page = sorted[(n-1)*size : end]
		pageURL := func(p int) string {
			return base + registry.ReleasesPath(id) + "?page=" + strconv.Itoa(p)
		}
		links = append(links, linkValue(pageURL(1), registry.RelFirst), linkValue(pageURL(pages), registry.RelLast))
		if n > 1 {
			links = append(links, linkValue(pageURL(n-1), registry.RelPrevious))
		}
		if n < pages {
			links = append(links, linkValue(pageURL(n+1), registry.RelNext))
		}
	}

	releases := map[string]any{}
	for _, v := range page {
		releases[v] = map[string]any{
			"url": base + registry.ReleasePath(ident.PackageRelease{Package: id, Version: v}),
		}
	}
	if len(links) > 0 {
		w.Header().Set(registry.HeaderLink, strings.Join(links, ", "))
	}
	f.writeJSON(w, http.StatusOK, map[string]any{"releases": releases})
}

func (f *FakeRegistry) releaseOrArchive(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")
	if v, ok := strings.CutSuffix(version, ".zip"); ok {
		f.downloadArchive(w, r, ident.PackageRelease{Package: requestIdentity(r), Version: v})
		return
	}
	f.releaseInfo(w, r, ident.PackageRelease{Package: requestIdentity(r), Version: version})
}

func (f *FakeRegistry) releaseInfo(w http.ResponseWriter, r *http.Request, release ident.PackageRelease) {
	f.mu.Lock()
	rel := f.lookup(release)
	var versions []string
	var canonical ident.PackageIdentity
	if rel != nil {
		pkg := f.packages[packageKey(release.Package)]
		canonical = pkg.identity
		for v := range pkg.releases {
			versions = append(versions, v)
		}
	}
	f.mu.Unlock()
	if rel == nil {
		f.problem(w, http.StatusNotFound, fmt.Sprintf("release %s not found", release))
		return
	}

	if !f.behavior.OmitReleaseLinks {
		base := f.baseURL(r)
		at := func(v string) string {
			return base + registry.ReleasePath(ident.PackageRelease{Package: release.Package, Version: v})
		}
		links := []string{linkValue(at(registry.NewestVersion(versions)), registry.RelLatestVersion)}
		predecessor, successor := registry.Neighbors(versions, release.Version)
		if successor != "" {
			links = append(links, linkValue(at(successor), registry.RelSuccessorVersion))
		}
		if predecessor != "" {
			links = append(links, linkValue(at(predecessor), registry.RelPredecessorVersion))
		}
		w.Header().Set(registry.HeaderLink, strings.Join(links, ", "))
	}

	f.writeJSON(w, http.StatusOK, map[string]any{
		"id":      canonical.String(),
		"version": rel.version,
		"resources": []any{map[string]any{
			"name":     "source-archive",
			"type":     registry.ContentTypeZip,
			"checksum": rel.checksum,
		}},
		"metadata": rel.metadata,
	})
}

func (f *FakeRegistry) downloadArchive(w http.ResponseWriter, r *http.Request, release ident.PackageRelease) {
	f.mu.Lock()
	rel := f.lookup(release)
	f.mu.Unlock()
	if rel == nil {
		f.problem(w, http.StatusNotFound, fmt.Sprintf("release %s not found", release))
		return
	}
	h := w.Header()
	h.Set(registry.HeaderContentType, registry.ContentTypeZip)
	if !f.behavior.OmitContentDisposition {
		h.Set(registry.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s-%s.zip"`, release.Package.Name, release.Version))
	}
	if !f.behavior.OmitDigest {
		sum := sha256.Sum256(rel.archive)
		h.Set(registry.HeaderDigest, "sha-256="+base64.StdEncoding.EncodeToString(sum[:]))
	}
	f.writeBody(w, rel.archive)
}

func (f *FakeRegistry) manifest(w http.ResponseWriter, r *http.Request) {
	release := ident.PackageRelease{Package: requestIdentity(r), Version: chi.URLParam(r, "version")}
	f.mu.Lock()
	rel := f.lookup(release)
	f.mu.Unlock()
	if rel == nil {
		f.problem(w, http.StatusNotFound, fmt.Sprintf("release %s not found", release))
		return
	}

	swiftVersion := r.URL.Query().Get(registry.SwiftVersionParameter)
	body, ok := rel.manifests[swiftVersion]
	filename := registry.ManifestFilename(swiftVersion)
	if !ok {
		if !f.behavior.ServeMissingManifestVariant {
			w.Header().Set(registry.HeaderLocation, registry.ManifestPath(release, ""))
			w.WriteHeader(http.StatusSeeOther)
			return
		}
		body = rel.manifests[""]
		filename = registry.ManifestFilename("")
	}

	h := w.Header()
	h.Set(registry.HeaderContentType, registry.ContentTypeSwift)
	if !f.behavior.OmitContentDisposition {
		h.Set(registry.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	}
	if swiftVersion == "" && !f.behavior.OmitAlternateLinks {
		var variants []string
		for v := range rel.manifests {
			if v != "" {
				variants = append(variants, v)
			}
		}
		var links []string
		for _, v := range registry.SortVersions(variants) {
			links = append(links, linkValue(
				f.baseURL(r)+registry.ManifestPath(release, v),
				registry.RelAlternate,
				"filename", registry.ManifestFilename(v),
				"swift-tools-version", v,
			))
		}
		if len(links) > 0 {
			h.Set(registry.HeaderLink, strings.Join(links, ", "))
		}
	}
	f.writeBody(w, body)
}

func (f *FakeRegistry) lookupIdentifiers(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		f.problem(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	f.mu.Lock()
	var identifiers []string
	for _, pkg := range f.packages {
		if pkg.hasRepositoryURL(target) {
			identifiers = append(identifiers, pkg.identity.String())
		}
	}
	f.mu.Unlock()
	if len(identifiers) == 0 {
		f.problem(w, http.StatusNotFound, "no packages for "+target)
		return
	}
	sort.Strings(identifiers)
	f.writeJSON(w, http.StatusOK, map[string]any{"identifiers": identifiers})
}

func (p *fakePackage) hasRepositoryURL(target string) bool {
	for _, rel := range p.releases {
		urls, _ := rel.metadata["repositoryURLs"].([]any)
		for _, u := range urls {
			if s, ok := u.(string); ok && strings.EqualFold(s, target) {
				return true
			}
		}
	}
	return false
}

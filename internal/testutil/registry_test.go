package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/regcompat/internal/ident"
)

var linkedList = ident.PackageRelease{
	Package: ident.PackageIdentity{Scope: "mona", Name: "LinkedList"},
	Version: "1.1.1",
}

func seedLinkedList(t *testing.T, reg *FakeRegistry, version string, swiftVersions ...string) {
	t.Helper()
	archive, err := BuildArchive("LinkedList", PackageFiles("LinkedList", swiftVersions...))
	require.NoError(t, err)
	r := linkedList
	r.Version = version
	require.NoError(t, reg.Seed(r, archive, []byte(`{"repositoryURLs":["https://github.com/mona/LinkedList"]}`)))
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	return doc
}

func TestFakeRegistryListsNewestFirst(t *testing.T) {
	reg := NewFakeRegistry(t, RegistryBehavior{})
	seedLinkedList(t, reg, "1.0.0")
	seedLinkedList(t, reg, "1.1.1")

	resp := get(t, reg.URL()+"/mona/LinkedList")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Content-Version"))
	assert.Contains(t, resp.Header.Get("Link"), `/mona/LinkedList/1.1.1>; rel="latest-version"`)

	releases := decode(t, resp)["releases"].(map[string]any)
	assert.Len(t, releases, 2)
}

func TestFakeRegistryIdentityIsCaseInsensitive(t *testing.T) {
	reg := NewFakeRegistry(t, RegistryBehavior{})
	seedLinkedList(t, reg, "1.1.1")

	resp := get(t, reg.URL()+"/MONA/linkedlist/1.1.1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mona.LinkedList", decode(t, resp)["id"])
}

func TestFakeRegistryUnknownPackageIsProblem(t *testing.T) {
	reg := NewFakeRegistry(t, RegistryBehavior{})
	resp := get(t, reg.URL()+"/mona/Missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, decode(t, resp)["detail"])
}

func TestFakeRegistryManifestVariants(t *testing.T) {
	reg := NewFakeRegistry(t, RegistryBehavior{})
	seedLinkedList(t, reg, "1.1.1", "4.2")

	resp := get(t, reg.URL()+"/mona/LinkedList/1.1.1/Package.swift")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Link"), `rel="alternate"; filename="Package@swift-4.2.swift"`)
	assert.Equal(t, `attachment; filename="Package.swift"`, resp.Header.Get("Content-Disposition"))

	resp = get(t, reg.URL()+"/mona/LinkedList/1.1.1/Package.swift?swift-version=4.2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "swift-tools-version:4.2")

	resp = get(t, reg.URL()+"/mona/LinkedList/1.1.1/Package.swift?swift-version=5.9")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/mona/LinkedList/1.1.1/Package.swift", resp.Header.Get("Location"))
}

func TestFakeRegistryArchiveHeaders(t *testing.T) {
	reg := NewFakeRegistry(t, RegistryBehavior{OmitDigest: true, OmitContentLength: true})
	seedLinkedList(t, reg, "1.1.1")

	resp := get(t, reg.URL()+"/mona/LinkedList/1.1.1.zip")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Digest"))
	assert.Equal(t, int64(-1), resp.ContentLength)
	assert.Equal(t, `attachment; filename="LinkedList-1.1.1.zip"`, resp.Header.Get("Content-Disposition"))
}

func TestFakeRegistryIdentifiers(t *testing.T) {
	reg := NewFakeRegistry(t, RegistryBehavior{})
	seedLinkedList(t, reg, "1.1.1")

	resp := get(t, reg.URL()+"/identifiers?url=https://github.com/mona/LinkedList")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"mona.LinkedList"}, decode(t, resp)["identifiers"])

	resp = get(t, reg.URL()+"/identifiers?url=https://github.com/mona/Other")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func publish(t *testing.T, reg *FakeRegistry, path string) *http.Response {
	t.Helper()
	archive, err := BuildArchive("LinkedList", PackageFiles("LinkedList"))
	require.NoError(t, err)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("source-archive", "source-archive.zip")
	require.NoError(t, err)
	part.Write(archive)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPut, reg.URL()+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestFakeRegistryPublishAndConflict(t *testing.T) {
	reg := NewFakeRegistry(t, RegistryBehavior{})

	resp := publish(t, reg, "/mona/LinkedList/2.0.0")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, reg.Has(ident.PackageRelease{Package: linkedList.Package, Version: "2.0.0"}))

	resp = publish(t, reg, "/mona/LinkedList/2.0.0")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestFakeRegistryAsyncPublish(t *testing.T) {
	reg := NewFakeRegistry(t, RegistryBehavior{AsyncPublish: true, ProcessingPolls: 1})
	release := ident.PackageRelease{Package: linkedList.Package, Version: "2.0.0"}

	resp := publish(t, reg, "/mona/LinkedList/2.0.0")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	location := resp.Header.Get("Location")
	require.NotEmpty(t, location)
	assert.False(t, reg.Has(release))

	assert.Equal(t, http.StatusAccepted, get(t, location).StatusCode)
	final := get(t, location)
	assert.Equal(t, http.StatusMovedPermanently, final.StatusCode)
	assert.True(t, reg.Has(release))
}

func TestFakeRegistryRequiresAuthorization(t *testing.T) {
	reg := NewFakeRegistry(t, RegistryBehavior{Authorization: "Bearer secret"})
	resp := get(t, reg.URL()+"/mona/LinkedList")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []string{"GET /mona/LinkedList"}, reg.Requests())
}

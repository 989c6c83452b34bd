package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

// archiveModTime is stamped on every archive entry so that archives built
// from the same files are byte-identical.
var archiveModTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// BuildArchive returns a zip holding files under a single top-level
// directory named root. Entries are written in name order.
func BuildArchive(root string, files map[string]string) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		entry := name
		if root != "" {
			entry = root + "/" + name
		}
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     entry,
			Method:   zip.Deflate,
			Modified: archiveModTime,
		})
		if err != nil {
			return nil, fmt.Errorf("build archive: %w", err)
		}
		if _, err := f.Write([]byte(files[name])); err != nil {
			return nil, fmt.Errorf("build archive: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build archive: %w", err)
	}
	return buf.Bytes(), nil
}

// PackageFiles returns a minimal package: an unqualified Package.swift and
// one Package@swift-X.swift per tool version, each with distinct content.
func PackageFiles(name string, swiftVersions ...string) map[string]string {
	files := map[string]string{"Package.swift": manifestSource(name, "5.0")}
	files["Sources/"+name+"/"+name+".swift"] = "public struct " + name + " {}\n"
	for _, v := range swiftVersions {
		files["Package@swift-"+v+".swift"] = manifestSource(name, v)
	}
	return files
}

func manifestSource(name, toolsVersion string) string {
	return fmt.Sprintf("// swift-tools-version:%s\nimport PackageDescription\n\nlet package = Package(name: %q)\n", toolsVersion, name)
}

// WriteArchive builds a package archive and writes it to dir/filename,
// returning the path.
func WriteArchive(t testing.TB, dir, filename, name string, swiftVersions ...string) string {
	t.Helper()
	data, err := BuildArchive(name, PackageFiles(name, swiftVersions...))
	if err != nil {
		t.Fatalf("build archive: %v", err)
	}
	out := filepath.Join(dir, filename)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return out
}

// ArchiveManifests extracts the manifests of a source archive, keyed by
// tool version; the unqualified Package.swift is keyed by "". Manifests are
// looked up at the archive root and one directory below it.
func ArchiveManifests(data []byte) (map[string][]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	manifests := map[string][]byte{}
	for _, f := range r.File {
		if strings.Count(f.Name, "/") > 1 {
			continue
		}
		version, ok := manifestVersion(path.Base(f.Name))
		if !ok {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		manifests[version] = content
	}
	if _, ok := manifests[""]; !ok {
		return nil, fmt.Errorf("read archive: Package.swift not found")
	}
	return manifests, nil
}

func manifestVersion(filename string) (string, bool) {
	if filename == "Package.swift" {
		return "", true
	}
	version, ok := strings.CutPrefix(filename, "Package@swift-")
	if !ok {
		return "", false
	}
	version, ok = strings.CutSuffix(version, ".swift")
	return version, ok && version != ""
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("read archive: %s: %w", f.Name, err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("read archive: %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

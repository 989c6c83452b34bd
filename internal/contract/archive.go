package contract

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/registry"
)

// ArchiveExpect is the expectation for downloading a known release's
// source archive.
type ArchiveExpect struct {
	Archive            config.SourceArchive
	ContentLength      bool
	ContentDisposition bool
	Digest             bool
}

func evaluateArchive(in Input, resp *probe.Response) ([]Outcome, error) {
	exp, err := expectation[ArchiveExpect](in)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(resp.Body)

	c := newChecker(in)
	c.status(resp, http.StatusOK)
	c.contentVersion(resp)
	c.mediaType(resp, registry.ContentTypeZip)

	desc := "archive checksum is " + exp.Archive.Checksum
	if got := hex.EncodeToString(sum[:]); strings.EqualFold(got, exp.Archive.Checksum) {
		c.pass(desc)
	} else {
		c.fail(desc, "expected %s, got %s", exp.Archive.Checksum, got)
	}

	if exp.ContentLength {
		c.contentLength(resp)
	}
	if exp.ContentDisposition {
		c.contentDisposition(resp, "")
	}
	if exp.Digest {
		c.digest(resp, sum[:])
	}
	return c.result()
}

// digest checks for "Digest: sha-256=<base64>" matching the body.
func (c *checker) digest(resp *probe.Response, sum []byte) {
	desc := "Digest header has the sha-256 of the body"
	raw := resp.Header.Get(registry.HeaderDigest)
	if raw == "" {
		c.fail(desc, "Digest header is missing")
		return
	}
	want := base64.StdEncoding.EncodeToString(sum)
	for _, part := range strings.Split(raw, ",") {
		alg, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || !strings.EqualFold(alg, "sha-256") {
			continue
		}
		if value == want {
			c.pass(desc)
			return
		}
		c.fail(desc, "expected sha-256=%s, got sha-256=%s", want, value)
		return
	}
	c.fail(desc, "no sha-256 digest in %q", raw)
}

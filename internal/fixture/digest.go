package fixture

import (
	"bytes"
	"encoding/hex"
	"mime"
	"strings"

	"github.com/gowebpki/jcs"
	"github.com/zeebo/blake3"
	"golang.org/x/text/unicode/norm"
)

// DomainBody separates body digests from any other BLAKE3 use.
// The version suffix allows the normalization to change later.
const DomainBody = "regcompat/fixture-body/v1"

// Body kinds, hashed along with the normalized body.
const (
	kindJSON   = "json"
	kindText   = "text"
	kindBinary = "binary"
)

// Digest returns "blake3:<hex>" over the normalized body.
// Format: BLAKE3(domain + 0x00 + kind + 0x00 + normalized)
func Digest(contentType string, body []byte) string {
	kind, normalized := normalize(contentType, body)
	h := blake3.New()
	h.Write([]byte(DomainBody))
	h.Write([]byte{0x00})
	h.Write([]byte(kind))
	h.Write([]byte{0x00})
	h.Write(normalized)
	return "blake3:" + hex.EncodeToString(h.Sum(nil))
}

func normalize(contentType string, body []byte) (string, []byte) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}
	switch {
	case isJSON(mediaType):
		canonical, err := jcs.Transform(body)
		if err != nil {
			// Not valid JSON after all; compare raw bytes.
			return kindBinary, body
		}
		return kindJSON, canonical
	case strings.HasPrefix(mediaType, "text/"):
		return kindText, normalizeText(body)
	default:
		return kindBinary, body
	}
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// normalizeText applies NFC, converts CRLF and CR to LF, strips trailing
// spaces and tabs from each line and drops trailing blank lines.
func normalizeText(body []byte) []byte {
	s := norm.NFC.String(string(body))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	out := []byte(strings.Join(lines, "\n"))
	return bytes.TrimRight(out, "\n")
}

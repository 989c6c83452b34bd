package registry

import (
	"fmt"
	"strings"
)

// Link is one entry of an RFC 8288 Link header.
type Link struct {
	URL    string
	Rel    []string
	Params map[string]string
}

// HasRel reports whether the link carries relation rel.
func (l Link) HasRel(rel string) bool {
	for _, r := range l.Rel {
		if strings.EqualFold(r, rel) {
			return true
		}
	}
	return false
}

// ParseLinks parses every Link header value. Header values may each hold
// several comma separated links.
func ParseLinks(values []string) ([]Link, error) {
	var links []Link
	for _, v := range values {
		parsed, err := parseLinkValue(v)
		if err != nil {
			return nil, err
		}
		links = append(links, parsed...)
	}
	return links, nil
}

// FindRel returns the links that carry relation rel.
func FindRel(links []Link, rel string) []Link {
	var out []Link
	for _, l := range links {
		if l.HasRel(rel) {
			out = append(out, l)
		}
	}
	return out
}

func parseLinkValue(s string) ([]Link, error) {
	var links []Link
	rest := strings.TrimSpace(s)
	for rest != "" {
		if rest[0] != '<' {
			return nil, fmt.Errorf("link value %q: expected '<'", s)
		}
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return nil, fmt.Errorf("link value %q: unterminated URI reference", s)
		}
		link := Link{URL: rest[1:end], Params: map[string]string{}}
		rest = strings.TrimSpace(rest[end+1:])

		for strings.HasPrefix(rest, ";") {
			rest = strings.TrimSpace(rest[1:])
			var name, value string
			name, value, rest = parseLinkParam(rest)
			if name == "" {
				return nil, fmt.Errorf("link value %q: empty parameter name", s)
			}
			name = strings.ToLower(name)
			if name == "rel" {
				link.Rel = append(link.Rel, strings.Fields(value)...)
				continue
			}
			if _, dup := link.Params[name]; !dup {
				link.Params[name] = value
			}
		}

		links = append(links, link)
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return nil, fmt.Errorf("link value %q: expected ',' between links", s)
		}
		rest = strings.TrimSpace(rest[1:])
	}
	return links, nil
}

// parseLinkParam reads name[=value] and returns the remaining input.
func parseLinkParam(s string) (name, value, rest string) {
	i := strings.IndexAny(s, "=;,")
	if i < 0 {
		return strings.TrimSpace(s), "", ""
	}
	name = strings.TrimSpace(s[:i])
	if s[i] != '=' {
		return name, "", strings.TrimSpace(s[i:])
	}
	s = strings.TrimSpace(s[i+1:])
	if strings.HasPrefix(s, `"`) {
		var b strings.Builder
		j := 1
		for ; j < len(s); j++ {
			c := s[j]
			if c == '\\' && j+1 < len(s) {
				j++
				b.WriteByte(s[j])
				continue
			}
			if c == '"' {
				break
			}
			b.WriteByte(c)
		}
		if j < len(s) {
			j++
		}
		return name, b.String(), strings.TrimSpace(s[j:])
	}
	k := strings.IndexAny(s, ";,")
	if k < 0 {
		return name, strings.TrimSpace(s), ""
	}
	return name, strings.TrimSpace(s[:k]), strings.TrimSpace(s[k:])
}

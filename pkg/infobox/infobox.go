// Package infobox parses the semi-structured {{Infobox ...}} templates
// embedded in wiki markup into typed records. Parsing is lenient: individual
// fields that fail coercion become nil rather than failing the record.
package infobox

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// WrongKindError reports that the page's infobox discriminator does not
// match the requested record kind. It is not an ingestion failure.
type WrongKindError struct {
	Want string
	Got  string
}

func (e *WrongKindError) Error() string {
	return fmt.Sprintf("wrong infobox kind: want %s, got %s", e.Want, e.Got)
}

// IsWrongKind reports whether err is a discriminator mismatch.
func IsWrongKind(err error) bool {
	_, ok := err.(*WrongKindError)
	return ok
}

var infoboxStart = regexp.MustCompile(`(?i)\{\{Infobox[ _]+([A-Za-z ]+)`)

// Parse locates the first infobox template in raw wiki markup and returns
// its declared kind (lowercased) and a flat key→value map. ok is false when
// the content carries no infobox at all.
func Parse(raw string) (kind string, fields map[string]string, ok bool) {
	loc := infoboxStart.FindStringSubmatchIndex(raw)
	if loc == nil {
		return "", nil, false
	}
	kind = strings.ToLower(strings.TrimSpace(raw[loc[2]:loc[3]]))

	body, ok := templateBody(raw[loc[0]:])
	if !ok {
		return "", nil, false
	}

	fields = make(map[string]string)
	for _, part := range splitTopLevel(body) {
		eq := strings.Index(part, "=")
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(part[:eq]))
		value := cleanValue(part[eq+1:])
		if key != "" && value != "" {
			fields[key] = value
		}
	}
	return kind, fields, true
}

// templateBody returns the text between the opening {{ and its matching }},
// tracking nested templates.
func templateBody(s string) (string, bool) {
	depth := 0
	for i := 0; i < len(s)-1; i++ {
		switch s[i : i+2] {
		case "{{":
			depth++
			i++
		case "}}":
			depth--
			if depth == 0 {
				return s[2:i], true
			}
			i++
		}
	}
	return "", false
}

// splitTopLevel splits a template body on pipes that are not inside nested
// templates or wiki links.
func splitTopLevel(body string) []string {
	var parts []string
	var cur strings.Builder
	braces, brackets := 0, 0

	for i := 0; i < len(body); i++ {
		if i < len(body)-1 {
			switch body[i : i+2] {
			case "{{":
				braces++
			case "}}":
				braces--
			case "[[":
				brackets++
			case "]]":
				brackets--
			}
		}
		if body[i] == '|' && braces == 0 && brackets == 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(body[i])
	}
	parts = append(parts, cur.String())
	return parts
}

var wikiLink = regexp.MustCompile(`\[\[(?:[^|\]]*\|)?([^\]]*)\]\]`)

// cleanValue strips wiki link markup and surrounding whitespace from a field
// value, keeping the display text of piped links.
func cleanValue(v string) string {
	v = wikiLink.ReplaceAllString(v, "$1")
	return strings.TrimSpace(v)
}

// Int coerces a field to an integer, nil when absent or unparsable.
func Int(fields map[string]string, key string) *int {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(v, ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

// Float coerces a field to a float, nil when absent or unparsable.
func Float(fields map[string]string, key string) *float64 {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &f
}

var (
	truthy = map[string]bool{"yes": true, "true": true, "1": true, "y": true}
	falsy  = map[string]bool{"no": true, "false": true, "0": true, "n": true}
)

// Bool coerces a field from the truthy token set, nil when unrecognized.
func Bool(fields map[string]string, key string) *bool {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	v = strings.ToLower(strings.TrimSpace(v))
	if truthy[v] {
		t := true
		return &t
	}
	if falsy[v] {
		f := false
		return &f
	}
	return nil
}

var dateLayouts = []string{"2006-01-02", "2 January 2006", "January 2, 2006"}

// Date coerces a field to a date, nil when unparsable.
func Date(fields map[string]string, key string) *time.Time {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// List coerces a field to a comma-delimited string list, nil when absent.
func List(fields map[string]string, key string) []string {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

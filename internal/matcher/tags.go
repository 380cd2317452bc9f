package matcher

import (
	"regexp"
	"strings"
)

// ExplodeTags splits comma separated input into trimmed, non-empty tags.
// A tag wrapped in double quotes may contain commas; "" inside quotes is a
// literal quote.
func ExplodeTags(input string) []string {
	var (
		tags    []string
		cur     strings.Builder
		quoted  bool
		wasQuot bool
	)
	flush := func() {
		tag := cur.String()
		if !wasQuot {
			tag = strings.TrimSpace(tag)
		}
		if tag != "" {
			tags = append(tags, tag)
		}
		cur.Reset()
		wasQuot = false
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quoted && r == '"' && i+1 < len(runes) && runes[i+1] == '"':
			cur.WriteRune('"')
			i++
		case r == '"' && (quoted || strings.TrimSpace(cur.String()) == ""):
			if !quoted {
				cur.Reset()
			}
			quoted = !quoted
			wasQuot = true
		case r == ',' && !quoted:
			flush()
		case wasQuot && !quoted:
			// Text after a closing quote is ignored up to the next comma.
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tags
}

// EncodeTag quotes a tag when it contains a comma or a quote so ExplodeTags
// returns it unchanged.
func EncodeTag(tag string) string {
	if strings.ContainsAny(tag, `,"`) {
		return `"` + strings.ReplaceAll(tag, `"`, `""`) + `"`
	}
	return tag
}

// ImplodeTags joins tags for a single input value.
func ImplodeTags(tags []string) string {
	encoded := make([]string, len(tags))
	for i, t := range tags {
		encoded[i] = EncodeTag(t)
	}
	return strings.Join(encoded, ", ")
}

// idSuffix takes the last parenthesised group preceded by whitespace, wherever
// it sits in the token, so trailing text after the id is ignored.
var idSuffix = regexp.MustCompile(`(?s).+\s\(([^)]+)\)`)

// Render formats a candidate as the "label (id)" token the client submits.
func Render(label, id string) string {
	return label + " (" + id + ")"
}

// ExtractID parses the id out of a "label (id)" token. It reports false when
// the token carries no parenthesised id.
func ExtractID(token string) (string, bool) {
	m := idSuffix.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return "", false
	}
	id := strings.TrimSpace(m[1])
	return id, id != ""
}

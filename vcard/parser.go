package vcard

import (
	"bytes"
	"io"
	"mime/quotedprintable"
	"strings"

	"github.com/bmwcarit/gopbap/pbaperrors"
	"github.com/charmbracelet/log"
)

// knownTypes backs the "property start" test of §4.B step 1: a line is a
// continuation of the previous one unless its prefix names a known
// property, BEGIN/VERSION/END, or an X- extension.
var knownTypes = buildKnownTypes()

func buildKnownTypes() map[string]bool {
	m := map[string]bool{"BEGIN": true, "VERSION": true, "END": true}
	for name := range propertyTable {
		m[name] = true
	}
	return m
}

// Parse turns CRLF-terminated vCard wire text at the given version into the
// version-independent IR (§4.B). version selects whether quoted-printable
// and charset decoding of values is applied (2.1 only); CHARSET/ENCODING
// parameters are normalized the same way for both versions.
func Parse(data []byte, version string) (Card, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Card{}, pbaperrors.New(pbaperrors.KindEmptyInput, "vcard.Parse", "empty vCard input")
	}

	lines := unfoldLines(string(data))

	var card Card
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		typeName, paramsPart, valuePart, ok := splitPropertyLine(line)
		if !ok {
			log.Warn("vcard: dropping unparsable property line", "line", line)
			continue
		}
		if typeName == "BEGIN" || typeName == "VERSION" || typeName == "END" {
			continue
		}

		params := splitParams(paramsPart)
		prop := normalizeProperty(typeName, params, valuePart, version)
		card.Properties = append(card.Properties, prop)
	}

	return card, nil
}

// unfoldLines splits raw CRLF text into logical property lines, joining
// continuation lines per §4.B step 1.
func unfoldLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var lines []string
	for _, line := range raw {
		if line == "" {
			continue
		}
		if isPropertyStart(line) || len(lines) == 0 {
			lines = append(lines, line)
			continue
		}
		cont := line
		if len(cont) > 0 && (cont[0] == ' ' || cont[0] == '\t') {
			cont = cont[1:]
		}
		lines[len(lines)-1] += cont
	}
	return lines
}

// isPropertyStart implements §4.B step 1's "property start" test.
func isPropertyStart(line string) bool {
	prefix := line
	if idx := strings.IndexAny(line, ";:"); idx >= 0 {
		prefix = line[:idx]
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return false
	}
	if strings.HasPrefix(prefix, "X-") {
		return true
	}
	return knownTypes[prefix]
}

// splitPropertyLine splits "TYPE[;params]:values" at the first ':' (§4.B
// step 2).
func splitPropertyLine(line string) (typeName, paramsPart, valuePart string, ok bool) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return "", "", "", false
	}
	head := line[:colon]
	valuePart = line[colon+1:]

	if semi := strings.Index(head, ";"); semi >= 0 {
		typeName = strings.ToUpper(head[:semi])
		paramsPart = head[semi+1:]
	} else {
		typeName = strings.ToUpper(head)
	}
	return typeName, paramsPart, valuePart, true
}

// splitParams splits a ";"-joined parameter list, each "key=value" pair
// split at its last '=' (§4.B step 2); a parameter without '=' becomes
// ("", raw).
func splitParams(paramsPart string) []Param {
	if paramsPart == "" {
		return nil
	}
	var params []Param
	for _, field := range strings.Split(paramsPart, ";") {
		if field == "" {
			continue
		}
		if eq := strings.LastIndex(field, "="); eq >= 0 {
			params = append(params, Param{Key: strings.ToUpper(field[:eq]), Value: field[eq+1:]})
		} else {
			params = append(params, Param{Key: "", Value: field})
		}
	}
	return params
}

// splitValues splits on unescaped ';' into an ordered list, preserving
// empty slots (§4.B step 3), and removes the vCard backslash-escaping of
// ';', ',', and '\\' in each resulting field.
func splitValues(raw string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range raw {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ';':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

// normalizeProperty applies §4.B steps 3-4 to one split property line.
func normalizeProperty(typeName string, params []Param, rawValue, version string) Property {
	info := lookupProperty(typeName)

	// Plain-family properties pass through unchanged: only Text and Binary
	// subclasses touch ENCODING/CHARSET/TYPE at all (§4.B: "All other
	// property types pass through unchanged").
	if info.class == classPlain {
		values := splitValues(rawValue)
		return Property{Type: typeName, Parameters: params, Values: values}
	}

	var encodingVal string
	var hasEncoding bool
	var hasCharset bool
	var kept []Param
	for _, p := range params {
		switch p.Key {
		case "ENCODING":
			encodingVal = p.Value
			hasEncoding = true
		case "CHARSET":
			hasCharset = true
		default:
			kept = append(kept, p)
		}
	}

	if version == Version21 {
		if hasEncoding && strings.EqualFold(encodingVal, "QUOTED-PRINTABLE") {
			rawValue = decodeQuotedPrintable(rawValue)
		}
		if hasCharset {
			// Only UTF-8 is supported; invalid bytes are replaced rather
			// than treated as a hard parse failure (§4.B step 3).
			rawValue = strings.ToValidUTF8(rawValue, "�")
		}
	}

	values := splitValues(rawValue)

	normalized := make([]Param, 0, len(kept))
	for _, p := range kept {
		if p.Key == "" || p.Key == "TYPE" {
			normalized = append(normalized, Param{Key: "TYPE", Value: p.Value})
		} else {
			normalized = append(normalized, p)
		}
	}

	if info.class == classBinary && hasEncoding && isBase64Encoding(encodingVal) {
		normalized = append(normalized, Param{Key: "ENCODING", Value: "b"})
	}

	return Property{Type: typeName, Parameters: normalized, Values: values}
}

func isBase64Encoding(v string) bool {
	return strings.EqualFold(v, "BASE64") || strings.EqualFold(v, "b")
}

func decodeQuotedPrintable(s string) string {
	out, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(s)))
	if err != nil {
		log.Warn("vcard: quoted-printable decode failed, using raw bytes", "error", err)
		return s
	}
	return string(out)
}

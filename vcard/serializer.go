package vcard

import (
	"bytes"
	"mime/quotedprintable"
	"strings"

	"github.com/bmwcarit/gopbap/pbaperrors"
)

// Serialize renders an IR Card back to wire form at the requested version
// (§4.C), re-inserting BEGIN/VERSION/END framing and applying the
// per-property denormalize rules.
func Serialize(card Card, version string) (string, error) {
	if version != Version21 && version != Version30 {
		return "", pbaperrors.New(pbaperrors.KindUnsupportedVersion, "vcard.Serialize", "unsupported vCard version "+version)
	}

	var b strings.Builder
	b.WriteString("BEGIN:VCARD\r\n")
	b.WriteString("VERSION:" + version + "\r\n")

	for _, p := range card.Properties {
		line, err := denormalizeProperty(p, version)
		if err != nil {
			return "", err
		}
		b.WriteString(line)
	}

	b.WriteString("END:VCARD\r\n")
	return b.String(), nil
}

func denormalizeProperty(p Property, version string) (string, error) {
	info := lookupProperty(p.Type)
	params := append([]Param(nil), p.Parameters...)
	values := p.Values

	switch {
	case info.class == classText && version == Version21:
		joined := joinSemicolon(values)
		encoded := encodeQuotedPrintable(joined)
		values = strings.Split(encoded, ";")
		params = typeParamsToBare(params)
		params = append(params, Param{Key: "CHARSET", Value: "UTF-8"}, Param{Key: "ENCODING", Value: "QUOTED-PRINTABLE"})

	case info.class == classText && version == Version30:
		// values and (TYPE, v) parameters pass through unchanged.

	case info.class == classBinary && version == Version21:
		params = typeParamsToBare(params)
		params = renameEncodingValue(params, "b", "BASE64")

	case info.class == classBinary && version == Version30:
		// ENCODING=b and (TYPE, v) parameters pass through unchanged.
	}

	if p.Type == "PHOTO" && version == Version21 {
		params = dropParam(params, "VALUE")
	}

	return renderProperty(p.Type, params, values), nil
}

func renderProperty(typeName string, params []Param, values []string) string {
	var b strings.Builder
	b.WriteString(typeName)
	for _, p := range params {
		b.WriteString(";")
		if p.Key != "" {
			b.WriteString(p.Key)
			b.WriteString("=")
		}
		b.WriteString(p.Value)
	}
	b.WriteString(":")
	b.WriteString(joinSemicolon(values))
	b.WriteString("\r\n")
	return b.String()
}

// typeParamsToBare converts (TYPE, v) parameters back to the 2.1 bare-flag
// form ("", v), leaving other parameters untouched.
func typeParamsToBare(params []Param) []Param {
	out := make([]Param, len(params))
	for i, p := range params {
		if p.Key == "TYPE" {
			out[i] = Param{Key: "", Value: p.Value}
		} else {
			out[i] = p
		}
	}
	return out
}

func renameEncodingValue(params []Param, from, to string) []Param {
	out := make([]Param, len(params))
	for i, p := range params {
		if p.Key == "ENCODING" && p.Value == from {
			out[i] = Param{Key: "ENCODING", Value: to}
		} else {
			out[i] = p
		}
	}
	return out
}

func dropParam(params []Param, key string) []Param {
	var out []Param
	for _, p := range params {
		if p.Key == key {
			continue
		}
		out = append(out, p)
	}
	return out
}

func encodeQuotedPrintable(s string) string {
	var buf bytes.Buffer
	w := quotedprintable.NewWriter(&buf)
	_, _ = w.Write([]byte(s))
	_ = w.Close()
	return buf.String()
}

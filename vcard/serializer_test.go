package vcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestS3SerializeV30 is end-to-end scenario S3.
func TestS3SerializeV30(t *testing.T) {
	card := Card{Properties: []Property{
		{Type: "N", Values: []string{"Doe", "John"}},
		{Type: "TEL", Values: []string{"+15551234"}},
	}}

	got, err := Serialize(card, Version30)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCARD\r\nVERSION:3.0\r\nN:Doe;John\r\nTEL:+15551234\r\nEND:VCARD\r\n", got)
}

func TestSerializeUnsupportedVersion(t *testing.T) {
	_, err := Serialize(Card{}, "4.0")
	require.Error(t, err)
}

func TestSerializeTextV21AddsCharsetAndEncoding(t *testing.T) {
	card := Card{Properties: []Property{{Type: "FN", Values: []string{"Jane Doe"}}}}
	got, err := Serialize(card, Version21)
	require.NoError(t, err)
	assert.Contains(t, got, "CHARSET=UTF-8")
	assert.Contains(t, got, "ENCODING=QUOTED-PRINTABLE")
}

func TestSerializePhotoV21StripsValueParam(t *testing.T) {
	card := Card{Properties: []Property{{
		Type:       "PHOTO",
		Parameters: []Param{{Key: "VALUE", Value: "URL"}, {Key: "ENCODING", Value: "b"}},
		Values:     []string{"http://example.com/x.jpg"},
	}}}
	got, err := Serialize(card, Version21)
	require.NoError(t, err)
	assert.NotContains(t, got, "VALUE=")
}

// TestContentRoundTrip is invariant 2: re-serializing parse(t) at V then
// re-parsing produces an IR equal to parse(t), for a generated set of
// simple text/binary properties that round-trip cleanly under both
// versions' denormalize rules.
func TestContentRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		version := rapid.SampledFrom([]string{Version21, Version30}).Draw(rt, "version")
		n := rapid.StringMatching(`[A-Za-z ]{0,12}`).Draw(rt, "n0")
		tel := rapid.StringMatching(`\+?[0-9]{3,12}`).Draw(rt, "tel")

		card := Card{Properties: []Property{
			{Type: "N", Values: []string{n}},
			{Type: "TEL", Values: []string{tel}},
		}}

		text, err := Serialize(card, version)
		require.NoError(rt, err)

		reparsed, err := Parse([]byte(text), version)
		require.NoError(rt, err)

		reN, _ := reparsed.Get("N")
		reTel, _ := reparsed.Get("TEL")
		assert.Equal(rt, []string{n}, reN.Values)
		assert.Equal(rt, []string{tel}, reTel.Values)
	})
}

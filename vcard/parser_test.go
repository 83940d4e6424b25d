package vcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestS2ParseV21 is end-to-end scenario S2.
func TestS2ParseV21(t *testing.T) {
	input := "BEGIN:VCARD\r\nVERSION:2.1\r\nN;CHARSET=UTF-8;ENCODING=QUOTED-PRINTABLE:Doe;John\r\nTEL:+15551234\r\nEND:VCARD\r\n"

	card, err := Parse([]byte(input), Version21)
	require.NoError(t, err)
	require.Len(t, card.Properties, 2)

	assert.Equal(t, "N", card.Properties[0].Type)
	assert.Equal(t, []string{"Doe", "John"}, card.Properties[0].Values)
	assert.Empty(t, card.Properties[0].Parameters)

	assert.Equal(t, "TEL", card.Properties[1].Type)
	assert.Equal(t, []string{"+15551234"}, card.Properties[1].Values)
	assert.Empty(t, card.Properties[1].Parameters)
}

func TestParseEmptyInputFails(t *testing.T) {
	_, err := Parse([]byte("  \r\n  "), Version21)
	require.Error(t, err)
}

func TestParseStripsFraming(t *testing.T) {
	card, err := Parse([]byte("BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Jane Doe\r\nEND:VCARD\r\n"), Version30)
	require.NoError(t, err)
	for _, p := range card.Properties {
		assert.NotEqual(t, "BEGIN", p.Type)
		assert.NotEqual(t, "VERSION", p.Type)
		assert.NotEqual(t, "END", p.Type)
	}
}

func TestParseTypeParamNormalization(t *testing.T) {
	card, err := Parse([]byte("BEGIN:VCARD\r\nVERSION:3.0\r\nTEL;TYPE=HOME:+15551234\r\nEND:VCARD\r\n"), Version30)
	require.NoError(t, err)
	tel, ok := card.Get("TEL")
	require.True(t, ok)
	require.Len(t, tel.Parameters, 1)
	assert.Equal(t, Param{Key: "TYPE", Value: "HOME"}, tel.Parameters[0])
}

func TestParseBareFlagParamBecomesType(t *testing.T) {
	card, err := Parse([]byte("BEGIN:VCARD\r\nVERSION:2.1\r\nTEL;HOME:+15551234\r\nEND:VCARD\r\n"), Version21)
	require.NoError(t, err)
	tel, ok := card.Get("TEL")
	require.True(t, ok)
	require.Len(t, tel.Parameters, 1)
	assert.Equal(t, Param{Key: "TYPE", Value: "HOME"}, tel.Parameters[0])
}

func TestParsePlainFamilyParamsPassThroughUnchanged(t *testing.T) {
	card, err := Parse([]byte("BEGIN:VCARD\r\nVERSION:2.1\r\nBDAY;HOME:19800101\r\nEND:VCARD\r\n"), Version21)
	require.NoError(t, err)
	bday, ok := card.Get("BDAY")
	require.True(t, ok)
	require.Len(t, bday.Parameters, 1)
	assert.Equal(t, Param{Key: "", Value: "HOME"}, bday.Parameters[0])
}

func TestParseRetainsBase64EncodingMarker(t *testing.T) {
	card, err := Parse([]byte("BEGIN:VCARD\r\nVERSION:2.1\r\nPHOTO;ENCODING=BASE64;TYPE=JPEG:YWJj\r\nEND:VCARD\r\n"), Version21)
	require.NoError(t, err)
	photo, ok := card.Get("PHOTO")
	require.True(t, ok)
	found := false
	for _, p := range photo.Parameters {
		if p.Key == "ENCODING" {
			assert.Equal(t, "b", p.Value)
			found = true
		}
	}
	assert.True(t, found, "expected ENCODING=b to be retained")
}

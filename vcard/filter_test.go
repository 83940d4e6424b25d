package vcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestS6Filter is end-to-end scenario S6.
func TestS6Filter(t *testing.T) {
	card := Card{Properties: []Property{
		{Type: "N", Values: []string{"Doe", "John"}},
		{Type: "TEL", Values: []string{"+15551234"}},
		{Type: "EMAIL", Values: []string{"john@example.com"}},
	}}

	filtered := Filter(card, uint64(1)<<7, Version21) // TEL bit only

	var types []string
	for _, p := range filtered.Properties {
		types = append(types, p.Type)
	}
	assert.ElementsMatch(t, []string{"N", "TEL"}, types) // mandatory floor keeps N
	assert.NotContains(t, types, "EMAIL")
}

func TestFilterZeroMaskIsUnfiltered(t *testing.T) {
	card := Card{Properties: []Property{{Type: "EMAIL", Values: []string{"a@b.c"}}}}
	assert.Equal(t, card, Filter(card, 0, Version21))
}

func TestFilterV30RequiresFN(t *testing.T) {
	card := Card{Properties: []Property{
		{Type: "FN", Values: []string{"Jane Doe"}},
		{Type: "N", Values: []string{"Doe", "Jane"}},
		{Type: "TEL", Values: []string{"+1"}},
		{Type: "NOTE", Values: []string{"hi"}},
	}}
	filtered := Filter(card, uint64(1)<<7, Version30)
	var types []string
	for _, p := range filtered.Properties {
		types = append(types, p.Type)
	}
	assert.ElementsMatch(t, []string{"FN", "N", "TEL"}, types)
}

// TestInvariant3MandatoryFloor is invariant 3: every surviving property is
// either mandatory for version or has its bit set in mask.
func TestInvariant3MandatoryFloor(t *testing.T) {
	allTypes := make([]string, 0, len(propertyTable))
	for name := range propertyTable {
		allTypes = append(allTypes, name)
	}

	rapid.Check(t, func(rt *rapid.T) {
		mask := rapid.Uint64().Draw(rt, "mask")
		version := rapid.SampledFrom([]string{Version21, Version30}).Draw(rt, "version")

		var props []Property
		for _, name := range allTypes {
			props = append(props, Property{Type: name, Values: []string{"x"}})
		}
		card := Card{Properties: props}

		filtered := Filter(card, mask, version)
		if mask == 0 {
			return // unfiltered by definition
		}
		effective := mask | mandatoryMask(version)
		for _, p := range filtered.Properties {
			info := lookupProperty(p.Type)
			isMandatory := effective&mandatoryMask(version) != 0 && info.bit != noBit && mandatoryMask(version)&(uint64(1)<<uint(info.bit)) != 0
			bitSet := info.bit != noBit && effective&(uint64(1)<<uint(info.bit)) != 0
			require.True(rt, isMandatory || bitSet, "property %s survived without mandatory or mask bit", p.Type)
		}
	})
}

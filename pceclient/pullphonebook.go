package pceclient

import (
	"github.com/bmwcarit/gopbap/apparams"
)

// PullPhonebook retrieves the entire phonebook object named name from the
// current folder (§4.G). It returns the concatenated vCard body and the
// response parameters carried on the final fragment (PhonebookSize and/or
// NewMissedCalls, when present).
func (c *Client) PullPhonebook(name string, filter uint64, format byte, maxListCount, listStartOffset uint16) (apparams.ResponseParams, []byte, error) {
	params := apparams.RequestParams{
		Filter:          filter,
		Format:          format,
		MaxListCount:    maxListCount,
		ListStartOffset: listStartOffset,
	}
	encoded := apparams.EncodeRequest(params, apparams.TagFilter, apparams.TagFormat, apparams.TagMaxListCount, apparams.TagListStartOffset)
	return c.pullBody("pceclient.PullPhonebook", name, "x-bt/phonebook", encoded)
}

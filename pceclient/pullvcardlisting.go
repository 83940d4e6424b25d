package pceclient

import (
	"github.com/bmwcarit/gopbap/apparams"
)

// PullVCardListing retrieves the vCard-listing object named name from the
// current folder (§4.G). searchValue is only sent when non-empty; when
// sent, searchAttribute travels with it.
func (c *Client) PullVCardListing(name string, order byte, searchValue string, searchAttribute byte, maxListCount, listStartOffset uint16) (apparams.ResponseParams, []byte, error) {
	params := apparams.RequestParams{
		Order:           order,
		MaxListCount:    maxListCount,
		ListStartOffset: listStartOffset,
	}
	fields := []apparams.Tag{apparams.TagOrder, apparams.TagMaxListCount, apparams.TagListStartOffset}
	if searchValue != "" {
		params.SearchValue = []byte(searchValue)
		params.SearchAttribute = searchAttribute
		fields = append(fields, apparams.TagSearchValue, apparams.TagSearchAttribute)
	}
	encoded := apparams.EncodeRequest(params, fields...)
	return c.pullBody("pceclient.PullVCardListing", name, "x-bt/vcard-listing", encoded)
}

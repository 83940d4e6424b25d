package pceclient

import (
	"github.com/bmwcarit/gopbap/apparams"
	"github.com/bmwcarit/gopbap/obex"
)

// PullVCardEntry retrieves a single vCard named name from the current
// folder (§4.G). The PSE answers Pull Entry with a single response whatever
// its size, so that response is read directly rather than routed through
// pullBody's Continue loop.
func (c *Client) PullVCardEntry(name string, filter uint64, format byte) ([]byte, error) {
	params := apparams.RequestParams{Filter: filter, Format: format}
	encoded := apparams.EncodeRequest(params, apparams.TagFilter, apparams.TagFormat)

	resp, err := c.getObject("pceclient.PullVCardEntry", name, "x-bt/vcard", encoded)
	if err != nil {
		return nil, err
	}
	if eob, ok := resp.Headers.Get(obex.HeaderEndOfBody); ok {
		return eob.Bytes, nil
	}
	if bh, ok := resp.Headers.Get(obex.HeaderBody); ok {
		return bh.Bytes, nil
	}
	return nil, nil
}

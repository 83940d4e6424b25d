package pceclient

import (
	"path"

	"github.com/bmwcarit/gopbap/obex"
	"github.com/bmwcarit/gopbap/pbaperrors"
	"github.com/charmbracelet/log"
)

// SetPhonebook navigates the current folder (§4.G). Exactly one of name,
// toRoot, toParent selects the navigation target; an empty name with both
// flags false is rejected with InvalidArguments, matching the source's own
// validation (the no-op "empty name, no flags" case is rejected at this
// layer rather than silently sent as a folder-local SETPATH).
func (c *Client) SetPhonebook(name string, toRoot, toParent bool) error {
	if name == "" && !toRoot && !toParent {
		return pbaperrors.New(pbaperrors.KindInvalidArguments, "pceclient.SetPhonebook",
			"either name must be non-empty or to_root/to_parent must be set")
	}

	if toRoot {
		for c.currentDir != "/" {
			if err := c.setPathOnce("", true); err != nil {
				return err
			}
		}
		return nil
	}
	if toParent {
		if c.currentDir == "/" {
			log.Warn("pceclient: already at root, cannot navigate to parent")
			return nil
		}
		return c.setPathOnce("", true)
	}
	return c.setPathOnce(name, false)
}

// setPathOnce sends one SETPATH request and, only on a Success response,
// updates currentDir to mirror the server's new location.
func (c *Client) setPathOnce(name string, toParent bool) error {
	req := &obex.Request{
		Opcode:  obex.OpSetPath,
		SetPath: obex.SetPathFlags{NavigateToParent: toParent, DontCreateDir: true},
	}
	if name != "" {
		req.Headers = obex.HeaderSet{obex.NewNameHeader(name)}
	}

	if err := c.conn.WriteRequest(req); err != nil {
		return pbaperrors.Wrap(pbaperrors.KindTransportError, "pceclient.SetPhonebook", "failed to send SETPATH", err)
	}
	resp, err := c.conn.ReadResponse()
	if err != nil {
		return pbaperrors.Wrap(pbaperrors.KindTransportError, "pceclient.SetPhonebook", "failed to read SETPATH response", err)
	}
	if !resp.Code.IsSuccess() {
		log.Warn("pceclient: set_phonebook failed", "response_code", resp.Code)
		return pbaperrors.New(pbaperrors.KindFromResponseCode(resp.Code), "pceclient.SetPhonebook", "server responded "+resp.Code.String())
	}

	if toParent {
		c.currentDir = path.Dir(c.currentDir)
	} else if name != "" {
		c.currentDir = path.Join(c.currentDir, name)
	}
	return nil
}

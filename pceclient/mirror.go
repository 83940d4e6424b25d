package pceclient

import (
	"encoding/xml"
	"fmt"
	"path"

	"github.com/bmwcarit/gopbap/vfolder"
	"github.com/charmbracelet/log"
)

// phonebookObjects is the fixed set of phonebook object names mirrored for
// each memory location, matching the source's do_mirror_vfolder.
var phonebookObjects = []string{"spd", "fav", "pb", "ich", "och", "mch", "cch"}

// vcardListingXML mirrors the XML body of a Pull Listing response (§4.F):
// a flat list of <card handle="N.vcf" name="..."/> elements.
type vcardListingXML struct {
	Cards []struct {
		Handle string `xml:"handle,attr"`
		Name   string `xml:"name,attr"`
	} `xml:"card"`
}

// MirrorVfolder downloads every phonebook object from both SIM and phone
// memory into an FSStore rooted at rootDir, reproducing the source's
// do_mirror_vfolder: for each object, pull its vCard listing, SETPATH into
// it, pull every entry by handle, SETPATH back to the root, then pull the
// whole-phonebook file too. Put is the only PCE-side write path, keeping
// the PSE's own storage read-only.
func MirrorVfolder(c *Client, store *vfolder.FSStore) error {
	for _, memory := range []string{"sim_memory", "phone_memory"} {
		prefix := ""
		if memory == "sim_memory" {
			prefix = "SIM1/"
		}
		telecomDir := path.Join("/", prefix, "telecom")

		for _, object := range phonebookObjects {
			if err := mirrorOneObject(c, store, prefix, telecomDir, object); err != nil {
				log.Warn("pceclient: mirror failed for phonebook object", "object", object, "memory", memory, "error", err)
				continue
			}
		}
	}
	return nil
}

func mirrorOneObject(c *Client, store *vfolder.FSStore, prefix, telecomDir, object string) error {
	remoteDir := fmt.Sprintf("%stelecom/%s", prefix, object)

	_, listingBody, err := c.PullVCardListing(remoteDir, 0, "", 0, 65535, 0)
	if err != nil {
		return fmt.Errorf("pull vcard-listing for %s: %w", object, err)
	}

	var listing vcardListingXML
	if err := xml.Unmarshal(listingBody, &listing); err != nil {
		return fmt.Errorf("parse vcard-listing for %s: %w", object, err)
	}

	if err := c.SetPhonebook(remoteDir, false, false); err != nil {
		return fmt.Errorf("setpath into %s: %w", object, err)
	}

	localDir := path.Join(telecomDir, object)
	for _, card := range listing.Cards {
		log.Info("pceclient: mirroring card", "handle", card.Handle, "name", card.Name, "object", object)
		data, err := c.PullVCardEntry(card.Handle, 0, 0)
		if err != nil {
			log.Warn("pceclient: pull vcard entry failed", "handle", card.Handle, "object", object, "error", err)
			continue
		}
		if err := store.Put(path.Join(localDir, card.Handle), data); err != nil {
			return fmt.Errorf("write %s/%s: %w", object, card.Handle, err)
		}
	}

	if err := c.SetPhonebook("", true, false); err != nil {
		return fmt.Errorf("setpath to root after %s: %w", object, err)
	}

	_, phonebook, err := c.PullPhonebook(remoteDir+".vcf", 0, 0, 65535, 0)
	if err != nil {
		return fmt.Errorf("pull phonebook for %s: %w", object, err)
	}
	if err := store.Put(telecomDir+"/"+object+".vcf", phonebook); err != nil {
		return fmt.Errorf("write whole-phonebook file for %s: %w", object, err)
	}
	return nil
}

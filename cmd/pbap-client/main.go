// Command pbap-client is a non-interactive PCE driver exposing the command
// surface of §6 as subcommands, one per PCE operation, parsed with
// getopt-style flags the way the original REPL's options did.
package main

import (
	"fmt"
	"os"

	"github.com/bmwcarit/gopbap/obex"
	"github.com/bmwcarit/gopbap/pceclient"
	"github.com/bmwcarit/gopbap/vfolder"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: pbap-client <address> <command> [flags] [args]

commands:
  pull_phonebook <name>       -f filter -t format -c max-count -o start-offset
  pull_vcard_listing <name>   -r order --search-value=V --search-attribute=N -c max-count -o start-offset
  pull_vcard_entry <name>     -f filter -t format
  set_phonebook [name]        --to-root --to-parent
  mirror_vfolder <rootdir>`)
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}
	address, command, rest := os.Args[1], os.Args[2], os.Args[3:]

	target := obex.PBAPPSERecord.TargetUUID
	c, err := pceclient.Connect(address, pceclient.Config{Target: target[:]})
	if err != nil {
		log.Fatal("pbap-client: connect failed", "error", err)
	}
	defer c.Close()

	switch command {
	case "pull_phonebook":
		runPullPhonebook(c, rest)
	case "pull_vcard_listing":
		runPullVCardListing(c, rest)
	case "pull_vcard_entry":
		runPullVCardEntry(c, rest)
	case "set_phonebook":
		runSetPhonebook(c, rest)
	case "mirror_vfolder":
		runMirrorVfolder(c, rest)
	default:
		usage()
		os.Exit(2)
	}
}

func runPullPhonebook(c *pceclient.Client, args []string) {
	fs := pflag.NewFlagSet("pull_phonebook", pflag.ExitOnError)
	filter := fs.Uint64P("filter", "f", 0, "attribute filter mask")
	format := fs.Uint8P("format", "t", 0, "vcard format (0=2.1, 1=3.0)")
	maxCount := fs.Uint16P("max-count", "c", 65535, "maximum number of contacts")
	startOffset := fs.Uint16P("start-offset", "o", 0, "offset of first entry")
	fs.Parse(args)
	if fs.NArg() < 1 {
		log.Fatal("pbap-client: pull_phonebook requires a phonebook name")
	}

	rp, body, err := c.PullPhonebook(fs.Arg(0), *filter, *format, *maxCount, *startOffset)
	if err != nil {
		log.Fatal("pbap-client: pull_phonebook failed", "error", err)
	}
	log.Info("pull_phonebook result", "phonebook_size", rp.PhonebookSize, "new_missed_calls", rp.NewMissedCalls)
	fmt.Println(string(body))
}

func runPullVCardListing(c *pceclient.Client, args []string) {
	fs := pflag.NewFlagSet("pull_vcard_listing", pflag.ExitOnError)
	order := fs.Uint8P("order", "r", 0, "ordering: 0=indexed 1=alphanumeric 2=phonetical")
	searchValue := fs.String("search-value", "", "search value")
	searchAttribute := fs.Uint8("search-attribute", 0, "search attribute: 0=name 1=number 2=sound")
	maxCount := fs.Uint16P("max-count", "c", 65535, "maximum number of contacts")
	startOffset := fs.Uint16P("start-offset", "o", 0, "offset of first entry")
	fs.Parse(args)
	if fs.NArg() < 1 {
		log.Fatal("pbap-client: pull_vcard_listing requires a phonebook name")
	}

	_, body, err := c.PullVCardListing(fs.Arg(0), *order, *searchValue, *searchAttribute, *maxCount, *startOffset)
	if err != nil {
		log.Fatal("pbap-client: pull_vcard_listing failed", "error", err)
	}
	fmt.Println(string(body))
}

func runPullVCardEntry(c *pceclient.Client, args []string) {
	fs := pflag.NewFlagSet("pull_vcard_entry", pflag.ExitOnError)
	filter := fs.Uint64P("filter", "f", 0, "attribute filter mask")
	format := fs.Uint8P("format", "t", 0, "vcard format (0=2.1, 1=3.0)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		log.Fatal("pbap-client: pull_vcard_entry requires a vcard handle")
	}

	body, err := c.PullVCardEntry(fs.Arg(0), *filter, *format)
	if err != nil {
		log.Fatal("pbap-client: pull_vcard_entry failed", "error", err)
	}
	fmt.Println(string(body))
}

func runSetPhonebook(c *pceclient.Client, args []string) {
	fs := pflag.NewFlagSet("set_phonebook", pflag.ExitOnError)
	toRoot := fs.Bool("to-root", false, "navigate to the virtual folder root")
	toParent := fs.Bool("to-parent", false, "navigate to the parent folder")
	fs.Parse(args)

	name := ""
	if fs.NArg() > 0 {
		name = fs.Arg(0)
	}
	if err := c.SetPhonebook(name, *toRoot, *toParent); err != nil {
		log.Fatal("pbap-client: set_phonebook failed", "error", err)
	}
	log.Info("set_phonebook succeeded", "current_dir", c.CurrentDir())
}

func runMirrorVfolder(c *pceclient.Client, args []string) {
	if len(args) < 1 {
		log.Fatal("pbap-client: mirror_vfolder requires a local root directory")
	}
	rootDir := args[0]
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		log.Fatal("pbap-client: failed to create root directory", "error", err)
	}
	store := vfolder.NewFSStore(rootDir)
	if err := pceclient.MirrorVfolder(c, store); err != nil {
		log.Fatal("pbap-client: mirror_vfolder failed", "error", err)
	}
	log.Info("mirror_vfolder complete", "root_dir", rootDir)
}

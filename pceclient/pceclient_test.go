package pceclient

import (
	"net"
	"path"
	"testing"

	"github.com/bmwcarit/gopbap/obex"
	"github.com/bmwcarit/gopbap/pbapserver"
	"github.com/bmwcarit/gopbap/vcard"
	"github.com/bmwcarit/gopbap/vfolder"
	"github.com/stretchr/testify/require"
)

// pipeClient wires a Client directly to an in-process pbapserver.Session
// over net.Pipe, skipping the TCP dial Connect performs so the transaction
// engine and the PCE client can be exercised end to end without a socket.
func pipeClient(t *testing.T, store vfolder.Store, opts ...pbapserver.Option) *Client {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	session := pbapserver.NewSession(store, "/", opts...)
	go func() { _ = session.Serve(obex.NewConn(serverConn)) }()
	t.Cleanup(func() { clientConn.Close() })

	oc := obex.NewConn(clientConn)
	require.NoError(t, oc.WriteConnect(0xFFFF, nil))
	code, _, err := oc.ReadConnectAccept()
	require.NoError(t, err)
	require.True(t, code.IsSuccess())

	return &Client{conn: oc, nc: clientConn, currentDir: "/"}
}

func seedPhonebook() *vfolder.MemStore {
	s := vfolder.NewMemStore()
	s.EnsureDir("/telecom")
	s.Seed("/telecom/pb", vcard.Card{Properties: []vcard.Property{
		{Type: "N", Values: []string{"Alice"}},
		{Type: "TEL", Values: []string{"+15551111"}},
	}})
	s.Seed("/telecom/pb", vcard.Card{Properties: []vcard.Property{
		{Type: "N", Values: []string{"Bob"}},
		{Type: "TEL", Values: []string{"+15552222"}},
	}})
	return s
}

func TestPullVCardListingReturnsHandles(t *testing.T) {
	c := pipeClient(t, seedPhonebook())
	_, body, err := c.PullVCardListing("telecom/pb", 0, "", 0, 65535, 0)
	require.NoError(t, err)
	require.Contains(t, string(body), "0.vcf")
	require.Contains(t, string(body), "1.vcf")
}

func TestPullVCardEntryReturnsSerializedCard(t *testing.T) {
	c := pipeClient(t, seedPhonebook())
	body, err := c.PullVCardEntry("telecom/pb/0.vcf", 0, 0)
	require.NoError(t, err)
	require.Contains(t, string(body), "Alice")
}

func TestPullPhonebookReturnsAllCards(t *testing.T) {
	c := pipeClient(t, seedPhonebook())
	rp, body, err := c.PullPhonebook("telecom/pb.vcf", 0, 0, 65535, 0)
	require.NoError(t, err)
	require.False(t, rp.HasPhonebookSize) // PhonebookSize is only sent for MaxListCount == 0
	require.Contains(t, string(body), "Alice")
	require.Contains(t, string(body), "Bob")
}

func TestSetPhonebookTracksCurrentDir(t *testing.T) {
	c := pipeClient(t, seedPhonebook())
	require.NoError(t, c.SetPhonebook("telecom", false, false))
	require.Equal(t, "/telecom", c.CurrentDir())
	require.NoError(t, c.SetPhonebook("pb", false, false))
	require.Equal(t, "/telecom/pb", c.CurrentDir())
	require.NoError(t, c.SetPhonebook("", false, true))
	require.Equal(t, "/telecom", c.CurrentDir())
	require.NoError(t, c.SetPhonebook("", true, false))
	require.Equal(t, "/", c.CurrentDir())
}

func TestMirrorVfolderWritesLocalFiles(t *testing.T) {
	c := pipeClient(t, seedPhonebook())
	dir := t.TempDir()
	store := vfolder.NewFSStore(dir)
	require.NoError(t, MirrorVfolder(c, store))

	require.True(t, store.IsFile(path.Join("/telecom/pb", "0.vcf")))
	require.True(t, store.IsFile(path.Join("/telecom", "pb.vcf")))
}

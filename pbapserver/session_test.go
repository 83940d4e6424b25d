package pbapserver

import (
	"net"
	"testing"

	"github.com/bmwcarit/gopbap/apparams"
	"github.com/bmwcarit/gopbap/obex"
	"github.com/bmwcarit/gopbap/vcard"
	"github.com/bmwcarit/gopbap/vfolder"
	"github.com/stretchr/testify/require"
)

// pipeSession wires a Session to one end of an in-process net.Pipe and
// returns the client-side obex.Conn, driving Serve in a background
// goroutine for the duration of the test.
func pipeSession(t *testing.T, store vfolder.Store, opts ...Option) *obex.Conn {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	session := NewSession(store, "/", opts...)
	go func() {
		_ = session.Serve(obex.NewConn(serverConn))
	}()
	t.Cleanup(func() { clientConn.Close() })
	return obex.NewConn(clientConn)
}

func seedStore() *vfolder.MemStore {
	s := vfolder.NewMemStore()
	s.EnsureDir("/telecom")
	s.Seed("/telecom/mch", vcard.Card{Properties: []vcard.Property{
		{Type: "N", Values: []string{"Caller1"}},
		{Type: "TEL", Values: []string{"+15550001"}},
	}})
	s.Seed("/telecom/mch", vcard.Card{Properties: []vcard.Property{
		{Type: "N", Values: []string{"Caller2"}},
		{Type: "TEL", Values: []string{"+15550002"}},
	}})
	return s
}

func getRequest(name, objType string, params *apparams.RequestParams) *obex.Request {
	hs := obex.HeaderSet{obex.NewNameHeader(name), obex.NewTypeHeader(objType)}
	if params != nil {
		hs = append(hs, obex.NewAppParamsHeader(apparams.EncodeRequest(*params,
			apparams.TagMaxListCount, apparams.TagListStartOffset, apparams.TagOrder,
			apparams.TagSearchAttribute, apparams.TagSearchValue, apparams.TagFilter, apparams.TagFormat)))
	}
	return &obex.Request{Opcode: obex.OpGetFinal, Headers: hs}
}

func TestPullListingMaxListCountZeroReturnsSizeOnly(t *testing.T) {
	store := seedStore()
	conn := pipeSession(t, store)

	params := apparams.DefaultRequestParams()
	params.MaxListCount = 0
	require.NoError(t, conn.WriteRequest(getRequest("mch", "x-bt/vcard-listing", &params)))

	resp, err := conn.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, obex.Success, resp.Code)

	_, hasBody := resp.Headers.Get(obex.HeaderEndOfBody)
	require.False(t, hasBody)

	appHeader, ok := resp.Headers.Get(obex.HeaderApplicationParameters)
	require.True(t, ok)
	rp, err := apparams.DecodeResponse(appHeader.Bytes)
	require.NoError(t, err)
	require.True(t, rp.HasPhonebookSize)
	require.EqualValues(t, 2, rp.PhonebookSize)
}

func TestPullListingReportsNewMissedCalls(t *testing.T) {
	store := seedStore()
	conn := pipeSession(t, store)

	require.NoError(t, conn.WriteRequest(getRequest("mch", "x-bt/vcard-listing", nil)))
	resp, err := conn.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, obex.Success, resp.Code)

	appHeader, ok := resp.Headers.Get(obex.HeaderApplicationParameters)
	require.True(t, ok)
	rp, err := apparams.DecodeResponse(appHeader.Bytes)
	require.NoError(t, err)
	require.True(t, rp.HasNewMissedCalls)
	require.EqualValues(t, 2, rp.NewMissedCalls)

	// A second pull with nothing new seen should report zero new calls.
	require.NoError(t, conn.WriteRequest(getRequest("mch", "x-bt/vcard-listing", nil)))
	resp2, err := conn.ReadResponse()
	require.NoError(t, err)
	appHeader2, ok := resp2.Headers.Get(obex.HeaderApplicationParameters)
	require.True(t, ok)
	rp2, err := apparams.DecodeResponse(appHeader2.Bytes)
	require.NoError(t, err)
	require.EqualValues(t, 0, rp2.NewMissedCalls)
}

func TestSetPathToParentAtRootIsForbidden(t *testing.T) {
	store := seedStore()
	conn := pipeSession(t, store)

	req := &obex.Request{Opcode: obex.OpSetPath, SetPath: obex.SetPathFlags{NavigateToParent: true}}
	require.NoError(t, conn.WriteRequest(req))

	resp, err := conn.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, obex.Forbidden, resp.Code)
}

func TestSetPathDescendsIntoExistingFolder(t *testing.T) {
	store := seedStore()
	conn := pipeSession(t, store)

	req := &obex.Request{
		Opcode:  obex.OpSetPath,
		SetPath: obex.SetPathFlags{DontCreateDir: true},
		Headers: obex.HeaderSet{obex.NewNameHeader("telecom")},
	}
	require.NoError(t, conn.WriteRequest(req))
	resp, err := conn.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, obex.Success, resp.Code)
}

func TestPullPhonebookFragmentsLargeBody(t *testing.T) {
	store := vfolder.NewMemStore()
	store.EnsureDir("/telecom")
	longName := ""
	for i := 0; i < 200; i++ {
		longName += "X"
	}
	for i := 0; i < 10; i++ {
		store.Seed("/telecom/pb", vcard.Card{Properties: []vcard.Property{
			{Type: "N", Values: []string{longName}},
			{Type: "TEL", Values: []string{"+15550000"}},
		}})
	}

	conn := pipeSession(t, store, WithFragmentCap(256))

	require.NoError(t, conn.WriteRequest(getRequest("pb", "x-bt/phonebook", nil)))

	var fragments int
	var assembled []byte
	for {
		resp, err := conn.ReadResponse()
		require.NoError(t, err)
		if bodyHeader, ok := resp.Headers.Get(obex.HeaderBody); ok {
			assembled = append(assembled, bodyHeader.Bytes...)
		}
		if eobHeader, ok := resp.Headers.Get(obex.HeaderEndOfBody); ok {
			assembled = append(assembled, eobHeader.Bytes...)
		}
		fragments++
		if resp.Code == obex.Success {
			break
		}
		require.Equal(t, obex.Continue, resp.Code)
		require.NoError(t, conn.WriteRequest(getRequest("pb", "x-bt/phonebook", nil)))
	}

	require.Greater(t, fragments, 1)
	require.Contains(t, string(assembled), "BEGIN:VCARD")
}

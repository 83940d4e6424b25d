package pbapserver

import (
	"github.com/bmwcarit/gopbap/apparams"
	"github.com/bmwcarit/gopbap/obex"
)

// respond writes a response with the given code and headers. It is used by
// DISCONNECT, SETPATH, every failure path, and the GET responses built by
// bodyHeaders and phonebookSizeOnlyHeaders.
func (s *Session) respond(conn *obex.Conn, code obex.ResponseCode, headers obex.HeaderSet) error {
	return conn.WriteResponse(&obex.Response{Code: code, Headers: headers})
}

// bodyHeaders builds the header list for one GET response fragment: a Body
// header for a Continue fragment, an End-Of-Body header for the final one,
// plus an Application Parameters header whenever rp carries anything (§4.F).
func bodyHeaders(data []byte, rp apparams.ResponseParams, final bool) obex.HeaderSet {
	var hs obex.HeaderSet
	if final {
		hs = append(hs, obex.NewEndOfBodyHeader(data))
	} else {
		hs = append(hs, obex.NewBodyHeader(data))
	}
	if rp.HasPhonebookSize || rp.HasNewMissedCalls {
		hs = append(hs, obex.NewAppParamsHeader(apparams.EncodeResponse(rp)))
	}
	return hs
}

// phonebookSizeOnlyHeaders builds the "MaxListCount==0" response: PhonebookSize in
// the response parameters, no body at all (§4.F Pull Listing / Pull
// Phonebook).
func phonebookSizeOnlyHeaders(size int) obex.HeaderSet {
	rp := apparams.ResponseParams{PhonebookSize: uint16(size), HasPhonebookSize: true}
	return obex.HeaderSet{obex.NewAppParamsHeader(apparams.EncodeResponse(rp))}
}

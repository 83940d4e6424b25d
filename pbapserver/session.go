// Package pbapserver implements the PSE (Phone Book Server Equipment)
// transaction engine: per-connection state, OBEX request dispatch, the three
// PBAP GET operations, and the Continue/Success fragmentation chain.
package pbapserver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmwcarit/gopbap/apparams"
	"github.com/bmwcarit/gopbap/obex"
	"github.com/bmwcarit/gopbap/pbaperrors"
	"github.com/bmwcarit/gopbap/vcard"
	"github.com/bmwcarit/gopbap/vfolder"
	"github.com/charmbracelet/log"
)

// defaultFragmentCap matches §4.F's conservative fixed per-fragment byte
// cap; real transports may report a higher negotiated MTU.
const defaultFragmentCap = 700

// Option configures a Session at construction time.
type Option func(*Session)

// WithFragmentCap overrides the per-fragment byte cap used by Pull
// Phonebook's Continue/Success chain.
func WithFragmentCap(n int) Option {
	return func(s *Session) { s.fragmentCap = n }
}

// WithConnectionID overrides the Connection ID value the session reports on
// CONNECT accept.
func WithConnectionID(id uint32) Option {
	return func(s *Session) { s.connID = id }
}

// WithMaxPacketLength overrides the packet-length value advertised in the
// CONNECT response's fixed fields.
func WithMaxPacketLength(n uint16) Option {
	return func(s *Session) { s.maxPacketLen = n }
}

// Session holds the per-connection state the transaction engine threads
// through one handler method (§4.F), grounded on dimse.Service's mutable
// connection-scoped state struct: current_dir, the connected flag (tracked
// implicitly by the Serve loop), and mch_seen, which unlike the source is
// never reset mid-connection.
type Session struct {
	store        vfolder.Store
	rootDir      string
	currentDir   string
	mchSeen      int
	fragmentCap  int
	connID       uint32
	maxPacketLen uint16
}

// NewSession builds a Session rooted at rootDir against store.
func NewSession(store vfolder.Store, rootDir string, opts ...Option) *Session {
	s := &Session{
		store:        store,
		rootDir:      rootDir,
		currentDir:   rootDir,
		fragmentCap:  defaultFragmentCap,
		connID:       1,
		maxPacketLen: 0xFFFF,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentDir reports the session's current virtual-folder location, mostly
// useful to tests.
func (s *Session) CurrentDir() string {
	return s.currentDir
}

// Serve runs the request loop for one accepted connection: read, dispatch,
// respond, in strict order, until DISCONNECT or a transport error (§5 —
// single-connection, single-request-in-flight).
func (s *Session) Serve(conn *obex.Conn) error {
	for {
		req, err := conn.ReadRequest()
		if err != nil {
			return err
		}
		if err := s.dispatch(conn, req); err != nil {
			return err
		}
		if req.Opcode == obex.OpDisconnect {
			return nil
		}
	}
}

func (s *Session) dispatch(conn *obex.Conn, req *obex.Request) error {
	switch req.Opcode {
	case obex.OpConnect:
		return s.handleConnect(conn)
	case obex.OpDisconnect:
		return s.handleDisconnect(conn)
	case obex.OpSetPath:
		return s.handleSetPath(conn, req)
	case obex.OpGetFinal:
		return s.handleGet(conn, req)
	case obex.OpGet:
		log.Warn("pbapserver: unexpected non-final GET outside a fragmentation chain")
		return s.respond(conn, obex.BadRequest, nil)
	default:
		log.Warn("pbapserver: rejecting unsupported request", "opcode", req.Opcode)
		return s.respond(conn, obex.BadRequest, nil)
	}
}

func (s *Session) handleConnect(conn *obex.Conn) error {
	log.Debug("pbapserver: CONNECT", "remote", conn.RemoteAddr())
	headers := obex.HeaderSet{obex.NewConnectionIDHeader(s.connID)}
	return conn.WriteConnectAccept(s.maxPacketLen, headers)
}

func (s *Session) handleDisconnect(conn *obex.Conn) error {
	log.Debug("pbapserver: DISCONNECT")
	s.currentDir = s.rootDir
	return s.respond(conn, obex.Success, nil)
}

// handleSetPath implements §4.F's SETPATH rules exactly, including the
// "already at root" Forbidden and the create-or-fail makedirs semantics.
func (s *Session) handleSetPath(conn *obex.Conn, req *obex.Request) error {
	nameHeader, _ := req.Headers.Get(obex.HeaderName)
	name := nameHeader.String()

	if req.SetPath.NavigateToParent {
		if s.currentDir == "/" {
			log.Debug("pbapserver: SETPATH to-parent at root, Forbidden")
			return s.respond(conn, obex.Forbidden, nil)
		}
		s.currentDir = s.store.Join(s.currentDir, "..")
		if name == "" {
			log.Debug("pbapserver: SETPATH to-parent", "current_dir", s.currentDir)
			return s.respond(conn, obex.Success, nil)
		}
	}

	if name == "" {
		log.Debug("pbapserver: SETPATH no-op", "current_dir", s.currentDir)
		return s.respond(conn, obex.Success, nil)
	}

	requested := s.store.Join(s.currentDir, name)

	if !req.SetPath.DontCreateDir {
		if s.store.Exists(requested) {
			log.Debug("pbapserver: SETPATH create refused, already exists", "path", requested)
			return s.respond(conn, obex.PreconditionFailed, nil)
		}
		if err := s.store.MakeDirs(requested); err != nil {
			log.Warn("pbapserver: SETPATH makedirs failed", "path", requested, "error", err)
			return s.respond(conn, pbaperrors.ToResponseCode(err), nil)
		}
		s.currentDir = requested
		log.Debug("pbapserver: SETPATH created and moved", "current_dir", s.currentDir)
		return s.respond(conn, obex.Success, nil)
	}

	if !s.store.IsDir(requested) {
		log.Debug("pbapserver: SETPATH missing folder", "path", requested)
		return s.respond(conn, obex.PreconditionFailed, nil)
	}
	s.currentDir = requested
	log.Debug("pbapserver: SETPATH moved", "current_dir", s.currentDir)
	return s.respond(conn, obex.Success, nil)
}

// handleGet dispatches the three PBAP GET operations on the Type header.
func (s *Session) handleGet(conn *obex.Conn, req *obex.Request) error {
	typeHeader, ok := req.Headers.Get(obex.HeaderType)
	if !ok {
		return s.respond(conn, obex.BadRequest, nil)
	}
	switch typeHeader.String() {
	case "x-bt/vcard-listing":
		return s.pullListing(conn, req)
	case "x-bt/vcard":
		return s.pullEntry(conn, req)
	case "x-bt/phonebook":
		return s.pullPhonebook(conn, req)
	default:
		log.Warn("pbapserver: unknown GET object type", "type", typeHeader.String())
		return s.respond(conn, obex.BadRequest, nil)
	}
}

func (s *Session) decodeParams(req *obex.Request) (apparams.RequestParams, error) {
	header, ok := req.Headers.Get(obex.HeaderApplicationParameters)
	if !ok {
		return apparams.DefaultRequestParams(), nil
	}
	return apparams.Decode(header.Bytes)
}

// pullListing implements §4.F's Pull Listing operation.
func (s *Session) pullListing(conn *obex.Conn, req *obex.Request) error {
	nameHeader, _ := req.Headers.Get(obex.HeaderName)
	abs := s.store.Join(s.currentDir, nameHeader.String())

	params, err := s.decodeParams(req)
	if err != nil {
		log.Warn("pbapserver: malformed app-params on vcard-listing GET", "error", err)
		return s.respond(conn, pbaperrors.ToResponseCode(err), nil)
	}

	if !s.store.IsDir(abs) {
		return s.respond(conn, obex.NotFound, nil)
	}
	size, err := s.store.Count(abs)
	if err != nil {
		return s.respond(conn, pbaperrors.ToResponseCode(err), nil)
	}

	if params.HasMaxListCount() && params.MaxListCount == 0 {
		return s.respond(conn, obex.Success, phonebookSizeOnlyHeaders(size))
	}

	records, err := s.store.ListDir(abs, searchQuery(params))
	if err != nil {
		return s.respond(conn, pbaperrors.ToResponseCode(err), nil)
	}
	records = sortRecords(records, params.Order)

	window, offset := windowRecords(records, int(params.ListStartOffset), params.MaxListCount)

	var body strings.Builder
	body.WriteString("<?xml version=\"1.0\"?>\r\n")
	body.WriteString("<!DOCTYPE vcard-listing SYSTEM \"vcard-listing.dtd\">\r\n")
	body.WriteString("<vCard-listing version=\"1.0\">\r\n")
	for k, card := range window {
		fmt.Fprintf(&body, "<card handle=\"%d.vcf\" name=\"%s\"/>\r\n", offset+k, card.JoinedValues("N"))
	}
	body.WriteString("</vCard-listing>\r\n")

	rp := s.missedCallParams(abs, size)
	return s.respond(conn, obex.Success, bodyHeaders([]byte(body.String()), rp, true))
}

// pullEntry implements §4.F's Pull Entry operation.
func (s *Session) pullEntry(conn *obex.Conn, req *obex.Request) error {
	nameHeader, _ := req.Headers.Get(obex.HeaderName)
	abs := s.store.Join(s.currentDir, nameHeader.String())

	params, err := s.decodeParams(req)
	if err != nil {
		return s.respond(conn, pbaperrors.ToResponseCode(err), nil)
	}
	if !s.store.IsFile(abs) {
		return s.respond(conn, obex.NotFound, nil)
	}
	card, err := s.store.Read(abs)
	if err != nil {
		return s.respond(conn, pbaperrors.ToResponseCode(err), nil)
	}

	version := formatVersion(params.Format)
	filtered := vcard.Filter(card, params.Filter, version)
	text, err := vcard.Serialize(filtered, version)
	if err != nil {
		log.Warn("pbapserver: serialize failed on pull entry", "path", abs, "error", err)
		return s.respond(conn, obex.BadRequest, nil)
	}
	return s.respond(conn, obex.Success, bodyHeaders([]byte(text), apparams.ResponseParams{}, true))
}

// pullPhonebook implements §4.F's Pull Phonebook operation, including the
// Continue/Success fragmentation chain.
func (s *Session) pullPhonebook(conn *obex.Conn, req *obex.Request) error {
	nameHeader, _ := req.Headers.Get(obex.HeaderName)
	abs := s.store.Join(s.currentDir, nameHeader.String())
	stripped := strings.TrimSuffix(abs, ".vcf")

	params, err := s.decodeParams(req)
	if err != nil {
		return s.respond(conn, pbaperrors.ToResponseCode(err), nil)
	}
	if !s.store.IsFile(abs) {
		return s.respond(conn, obex.NotFound, nil)
	}
	size, err := s.store.Count(stripped)
	if err != nil {
		return s.respond(conn, pbaperrors.ToResponseCode(err), nil)
	}

	if params.HasMaxListCount() && params.MaxListCount == 0 {
		return s.respond(conn, obex.Success, phonebookSizeOnlyHeaders(size))
	}

	records, err := s.store.ListDir(stripped, vfolder.Query{})
	if err != nil {
		return s.respond(conn, pbaperrors.ToResponseCode(err), nil)
	}
	window, _ := windowRecords(records, int(params.ListStartOffset), params.MaxListCount)

	version := formatVersion(params.Format)
	var body []byte
	for _, card := range window {
		filtered := vcard.Filter(card, params.Filter, version)
		text, err := vcard.Serialize(filtered, version)
		if err != nil {
			log.Warn("pbapserver: skipping unserializable record on pull phonebook", "path", abs, "error", err)
			continue
		}
		body = append(body, []byte(text)...)
	}

	rp := s.missedCallParams(abs, size)
	return s.sendFragmented(conn, body, rp)
}

// sendFragmented implements the Continue/Success chain: each fragment no
// larger than fragmentCap, a peer GET read and discarded between fragments,
// and a final Success with an empty End-Of-Body once the body is exhausted.
func (s *Session) sendFragmented(conn *obex.Conn, body []byte, rp apparams.ResponseParams) error {
	if len(body) <= s.fragmentCap {
		return s.respond(conn, obex.Success, bodyHeaders(body, rp, true))
	}

	log.Debug("pbapserver: fragmenting response", "bytes", len(body), "cap", s.fragmentCap)
	offset := 0
	for offset < len(body) {
		end := offset + s.fragmentCap
		if end > len(body) {
			end = len(body)
		}
		chunk := body[offset:end]
		offset = end

		if err := s.respond(conn, obex.Continue, bodyHeaders(chunk, rp, false)); err != nil {
			return err
		}
		if _, err := conn.ReadRequest(); err != nil {
			return err
		}
	}
	return s.respond(conn, obex.Success, bodyHeaders(nil, rp, true))
}

// missedCallParams attaches NewMissedCalls when abs names an mch phonebook
// object, updating mch_seen the way §4.F and §5 require: per connection,
// never reset mid-session.
func (s *Session) missedCallParams(abs string, size int) apparams.ResponseParams {
	if !strings.Contains(abs, "mch") {
		return apparams.ResponseParams{}
	}
	delta := size - s.mchSeen
	if delta < 0 {
		delta = 0
	}
	s.mchSeen = size
	return apparams.ResponseParams{NewMissedCalls: byte(delta), HasNewMissedCalls: true}
}

func formatVersion(format byte) string {
	if format == apparams.FormatV21 {
		return vcard.Version21
	}
	return vcard.Version30
}

// searchQuery builds the vfolder.Query from the request's search
// parameters, mapping SearchAttribute per §4.F; an unrecognized attribute
// disables search with a logged warning instead of failing the request.
func searchQuery(p apparams.RequestParams) vfolder.Query {
	if len(p.SearchValue) == 0 {
		return vfolder.Query{}
	}
	switch p.SearchAttribute {
	case apparams.SearchAttributeName:
		return vfolder.Query{Attribute: "N", Value: string(p.SearchValue)}
	case apparams.SearchAttributeNumber:
		return vfolder.Query{Attribute: "Number", Value: string(p.SearchValue)}
	case apparams.SearchAttributeSound:
		return vfolder.Query{Attribute: "Sound", Value: string(p.SearchValue)}
	default:
		log.Warn("pbapserver: unknown search attribute, disabling search", "attribute", p.SearchAttribute)
		return vfolder.Query{}
	}
}

// sortRecords orders cards per the Order application parameter; Indexed is
// a no-op (stable storage order), the other two sort by a joined property
// value with missing-key records sorted last (§4.F).
func sortRecords(cards []vcard.Card, order byte) []vcard.Card {
	var field string
	switch order {
	case apparams.OrderAlphanumeric:
		field = "N"
	case apparams.OrderPhonetical:
		field = "SOUND"
	default:
		return cards
	}

	out := append([]vcard.Card(nil), cards...)
	sort.SliceStable(out, func(i, j int) bool {
		ki, hi := sortKey(out[i], field)
		kj, hj := sortKey(out[j], field)
		if hi != hj {
			return hi
		}
		if !hi {
			return false
		}
		return ki < kj
	})
	return out
}

func sortKey(card vcard.Card, field string) (string, bool) {
	joined := card.JoinedValues(field)
	return joined, joined != ""
}

// windowRecords applies the offset/limit slicing common to Pull Listing and
// Pull Phonebook: records[offset : min(offset+maxListCount, 65535)].
func windowRecords(records []vcard.Card, offset int, maxListCount uint16) ([]vcard.Card, int) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return nil, offset
	}
	end := offset + int(maxListCount)
	if end > 65535 {
		end = 65535
	}
	if end > len(records) {
		end = len(records)
	}
	if end < offset {
		end = offset
	}
	return records[offset:end], offset
}

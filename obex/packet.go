package obex

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// maxPacketLength bounds a single OBEX packet the way the teacher's PDU
// layer trusts a declared length up to the negotiated max PDU size; OBEX
// negotiates this during CONNECT, but a generous fixed ceiling is enough
// for a stand-in transport that never negotiates a smaller one.
const maxPacketLength = 1 << 16

// SetPathFlags carries the two flag bits OBEX SETPATH transmits immediately
// after the 3-byte packet header, ahead of the header list.
type SetPathFlags struct {
	NavigateToParent bool
	DontCreateDir    bool
}

// Request is one decoded OBEX request packet.
type Request struct {
	Opcode  Opcode
	SetPath SetPathFlags // only meaningful when Opcode == OpSetPath
	Headers HeaderSet
}

// Response is one OBEX response packet ready to send.
type Response struct {
	Code    ResponseCode
	Headers HeaderSet
}

// Conn wraps a net.Conn with OBEX packet framing. It knows nothing about
// PBAP; the transaction engine and client core build and interpret
// Request/Response values against it.
type Conn struct {
	nc net.Conn
}

func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc}
}

func (c *Conn) Close() error {
	return c.nc.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// ReadRequest reads one complete OBEX request packet.
func (c *Conn) ReadRequest() (*Request, error) {
	header := make([]byte, 3)
	if _, err := io.ReadFull(c.nc, header); err != nil {
		return nil, err
	}
	opcode := Opcode(header[0])
	length := int(binary.BigEndian.Uint16(header[1:3]))
	if length < 3 || length > maxPacketLength {
		return nil, fmt.Errorf("obex: request declares invalid length %d", length)
	}

	body := make([]byte, length-3)
	if _, err := io.ReadFull(c.nc, body); err != nil {
		return nil, fmt.Errorf("obex: short read of request body: %w", err)
	}

	req := &Request{Opcode: opcode}

	if opcode == OpSetPath {
		if len(body) < 2 {
			return nil, fmt.Errorf("obex: SETPATH packet missing flag bytes")
		}
		req.SetPath = SetPathFlags{
			NavigateToParent: body[0]&0x01 != 0,
			DontCreateDir:    body[0]&0x02 != 0,
		}
		body = body[2:]
	} else if opcode == OpConnect {
		// version(1) flags(1) maxpacketlength(2) precede the header list.
		if len(body) < 4 {
			return nil, fmt.Errorf("obex: CONNECT packet missing fixed fields")
		}
		body = body[4:]
	}

	hs, err := decodeHeaderSet(body)
	if err != nil {
		return nil, err
	}
	req.Headers = hs
	return req, nil
}

// WriteResponse encodes and writes one OBEX response packet.
func (c *Conn) WriteResponse(resp *Response) error {
	body, err := resp.Headers.encode()
	if err != nil {
		return err
	}
	total := 3 + len(body)
	if total > maxPacketLength {
		return fmt.Errorf("obex: response too large (%d bytes)", total)
	}
	buf := make([]byte, 3, total)
	buf[0] = byte(resp.Code)
	binary.BigEndian.PutUint16(buf[1:3], uint16(total))
	buf = append(buf, body...)

	_, err = c.nc.Write(buf)
	return err
}

// WriteConnectAccept writes the fixed-field CONNECT response the way a real
// OBEX responder would (protocol version, flags, max packet length), ahead
// of the header list.
func (c *Conn) WriteConnectAccept(maxPacketLen uint16, headers HeaderSet) error {
	hdrBytes, err := headers.encode()
	if err != nil {
		return err
	}
	total := 3 + 4 + len(hdrBytes)
	buf := make([]byte, 3, total)
	buf[0] = byte(Success)
	binary.BigEndian.PutUint16(buf[1:3], uint16(total))
	buf = append(buf, 0x10, 0x00) // version 1.0, flags 0
	lenBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBytes, maxPacketLen)
	buf = append(buf, lenBytes...)
	buf = append(buf, hdrBytes...)

	_, err = c.nc.Write(buf)
	return err
}

// WriteConnect writes a CONNECT request, used by the client core.
func (c *Conn) WriteConnect(maxPacketLen uint16, headers HeaderSet) error {
	hdrBytes, err := headers.encode()
	if err != nil {
		return err
	}
	total := 3 + 4 + len(hdrBytes)
	buf := make([]byte, 3, total)
	buf[0] = byte(OpConnect)
	binary.BigEndian.PutUint16(buf[1:3], uint16(total))
	buf = append(buf, 0x10, 0x00)
	lenBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBytes, maxPacketLen)
	buf = append(buf, lenBytes...)
	buf = append(buf, hdrBytes...)

	_, err = c.nc.Write(buf)
	return err
}

// ReadConnectAccept reads a CONNECT response from the server side's point
// of view (used by the client core after issuing WriteConnect).
func (c *Conn) ReadConnectAccept() (ResponseCode, HeaderSet, error) {
	header := make([]byte, 3)
	if _, err := io.ReadFull(c.nc, header); err != nil {
		return 0, nil, err
	}
	code := ResponseCode(header[0])
	length := int(binary.BigEndian.Uint16(header[1:3]))
	if length < 3 || length > maxPacketLength {
		return 0, nil, fmt.Errorf("obex: response declares invalid length %d", length)
	}
	body := make([]byte, length-3)
	if _, err := io.ReadFull(c.nc, body); err != nil {
		return 0, nil, fmt.Errorf("obex: short read of response body: %w", err)
	}
	if len(body) < 4 {
		return 0, nil, fmt.Errorf("obex: CONNECT response missing fixed fields")
	}
	body = body[4:]
	hs, err := decodeHeaderSet(body)
	if err != nil {
		return 0, nil, err
	}
	return code, hs, nil
}

// WriteRequest writes a non-CONNECT request packet (GET/SETPATH/DISCONNECT),
// used by the client core.
func (c *Conn) WriteRequest(req *Request) error {
	var prefix []byte
	if req.Opcode == OpSetPath {
		flagByte := byte(0)
		if req.SetPath.NavigateToParent {
			flagByte |= 0x01
		}
		if req.SetPath.DontCreateDir {
			flagByte |= 0x02
		}
		prefix = []byte{flagByte, 0x00}
	}
	hdrBytes, err := req.Headers.encode()
	if err != nil {
		return err
	}
	total := 3 + len(prefix) + len(hdrBytes)
	buf := make([]byte, 3, total)
	buf[0] = byte(req.Opcode)
	binary.BigEndian.PutUint16(buf[1:3], uint16(total))
	buf = append(buf, prefix...)
	buf = append(buf, hdrBytes...)

	_, err = c.nc.Write(buf)
	return err
}

// ReadResponse reads a non-CONNECT response packet, used by the client core.
func (c *Conn) ReadResponse() (*Response, error) {
	header := make([]byte, 3)
	if _, err := io.ReadFull(c.nc, header); err != nil {
		return nil, err
	}
	code := ResponseCode(header[0])
	length := int(binary.BigEndian.Uint16(header[1:3]))
	if length < 3 || length > maxPacketLength {
		return nil, fmt.Errorf("obex: response declares invalid length %d", length)
	}
	body := make([]byte, length-3)
	if _, err := io.ReadFull(c.nc, body); err != nil {
		return nil, fmt.Errorf("obex: short read of response body: %w", err)
	}
	hs, err := decodeHeaderSet(body)
	if err != nil {
		return nil, err
	}
	return &Response{Code: code, Headers: hs}, nil
}

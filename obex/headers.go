package obex

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// HeaderID identifies one OBEX header. Its top two bits select the wire
// encoding of the value that follows (see encodingOf).
type HeaderID byte

const (
	HeaderName                  HeaderID = 0x01 // unicode
	HeaderType                  HeaderID = 0x42 // byte sequence
	HeaderLength                HeaderID = 0xC3 // 4-byte
	HeaderBody                  HeaderID = 0x48 // byte sequence
	HeaderEndOfBody             HeaderID = 0x49 // byte sequence
	HeaderConnectionID          HeaderID = 0xCB // 4-byte
	HeaderApplicationParameters HeaderID = 0x4C // byte sequence
	HeaderTarget                HeaderID = 0x46 // byte sequence
	HeaderWho                   HeaderID = 0x4A // byte sequence
)

type valueEncoding byte

const (
	encUnicode valueEncoding = 0x00
	encBytes   valueEncoding = 0x01
	encByte    valueEncoding = 0x02
	encUint32  valueEncoding = 0x03
)

func encodingOf(id HeaderID) valueEncoding {
	return valueEncoding((id >> 6) & 0x03)
}

// Header is one decoded OBEX header. Exactly one of the typed accessors
// below is meaningful, selected by the HeaderID's encoding class.
type Header struct {
	ID    HeaderID
	Bytes []byte // byte-sequence or unicode (decoded to UTF-8) value
	U32   uint32 // 1-byte or 4-byte value
}

// NewNameHeader builds a Name header from a plain UTF-8 string.
func NewNameHeader(name string) Header {
	return Header{ID: HeaderName, Bytes: []byte(name)}
}

func NewTypeHeader(t string) Header {
	return Header{ID: HeaderType, Bytes: append([]byte(t), 0x00)}
}

func NewBodyHeader(b []byte) Header {
	return Header{ID: HeaderBody, Bytes: b}
}

func NewEndOfBodyHeader(b []byte) Header {
	return Header{ID: HeaderEndOfBody, Bytes: b}
}

func NewAppParamsHeader(b []byte) Header {
	return Header{ID: HeaderApplicationParameters, Bytes: b}
}

func NewConnectionIDHeader(id uint32) Header {
	return Header{ID: HeaderConnectionID, U32: id}
}

// String decodes a unicode or byte-sequence header's Bytes as UTF-8 text,
// stripping a trailing NUL terminator if present.
func (h Header) String() string {
	b := h.Bytes
	if len(b) > 0 && b[len(b)-1] == 0x00 {
		b = b[:len(b)-1]
	}
	return string(b)
}

// encode writes the header in its wire form: id, then an encoding-specific
// length/value layout.
func (h Header) encode() ([]byte, error) {
	switch encodingOf(h.ID) {
	case encByte:
		return []byte{byte(h.ID), byte(h.U32)}, nil
	case encUint32:
		buf := make([]byte, 5)
		buf[0] = byte(h.ID)
		binary.BigEndian.PutUint32(buf[1:], h.U32)
		return buf, nil
	case encBytes:
		total := 3 + len(h.Bytes)
		if total > 0xFFFF {
			return nil, fmt.Errorf("obex: header 0x%02x value too large (%d bytes)", h.ID, len(h.Bytes))
		}
		buf := make([]byte, 3, total)
		buf[0] = byte(h.ID)
		binary.BigEndian.PutUint16(buf[1:3], uint16(total))
		buf = append(buf, h.Bytes...)
		return buf, nil
	case encUnicode:
		u16 := encodeUTF16NullTerminated(string(h.Bytes))
		total := 3 + len(u16)
		if total > 0xFFFF {
			return nil, fmt.Errorf("obex: header 0x%02x value too large (%d bytes)", h.ID, len(u16))
		}
		buf := make([]byte, 3, total)
		buf[0] = byte(h.ID)
		binary.BigEndian.PutUint16(buf[1:3], uint16(total))
		buf = append(buf, u16...)
		return buf, nil
	default:
		return nil, fmt.Errorf("obex: unreachable encoding for header 0x%02x", h.ID)
	}
}

// decodeHeader reads one header starting at data[0], returning the header
// and the number of bytes it consumed.
func decodeHeader(data []byte) (Header, int, error) {
	if len(data) < 1 {
		return Header{}, 0, fmt.Errorf("obex: empty header data")
	}
	id := HeaderID(data[0])
	switch encodingOf(id) {
	case encByte:
		if len(data) < 2 {
			return Header{}, 0, fmt.Errorf("obex: truncated 1-byte header 0x%02x", id)
		}
		return Header{ID: id, U32: uint32(data[1])}, 2, nil
	case encUint32:
		if len(data) < 5 {
			return Header{}, 0, fmt.Errorf("obex: truncated 4-byte header 0x%02x", id)
		}
		return Header{ID: id, U32: binary.BigEndian.Uint32(data[1:5])}, 5, nil
	case encBytes:
		if len(data) < 3 {
			return Header{}, 0, fmt.Errorf("obex: truncated length prefix for header 0x%02x", id)
		}
		total := int(binary.BigEndian.Uint16(data[1:3]))
		if total < 3 || total > len(data) {
			return Header{}, 0, fmt.Errorf("obex: header 0x%02x declares length %d beyond buffer", id, total)
		}
		return Header{ID: id, Bytes: append([]byte(nil), data[3:total]...)}, total, nil
	case encUnicode:
		if len(data) < 3 {
			return Header{}, 0, fmt.Errorf("obex: truncated length prefix for header 0x%02x", id)
		}
		total := int(binary.BigEndian.Uint16(data[1:3]))
		if total < 3 || total > len(data) {
			return Header{}, 0, fmt.Errorf("obex: header 0x%02x declares length %d beyond buffer", id, total)
		}
		text := decodeUTF16NullTerminated(data[3:total])
		return Header{ID: id, Bytes: []byte(text)}, total, nil
	default:
		return Header{}, 0, fmt.Errorf("obex: unreachable encoding for header 0x%02x", id)
	}
}

// HeaderSet is an ordered list of headers, the unit the transaction engine
// and the client core both build and consume.
type HeaderSet []Header

func (hs HeaderSet) Get(id HeaderID) (Header, bool) {
	for _, h := range hs {
		if h.ID == id {
			return h, true
		}
	}
	return Header{}, false
}

func (hs HeaderSet) encode() ([]byte, error) {
	var out []byte
	for _, h := range hs {
		b, err := h.encode()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func decodeHeaderSet(data []byte) (HeaderSet, error) {
	var hs HeaderSet
	for len(data) > 0 {
		h, n, err := decodeHeader(data)
		if err != nil {
			return nil, err
		}
		hs = append(hs, h)
		data = data[n:]
	}
	return hs, nil
}

func encodeUTF16NullTerminated(s string) []byte {
	runes := utf16.Encode([]rune(s))
	buf := make([]byte, 0, (len(runes)+1)*2)
	for _, r := range runes {
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, r)
		buf = append(buf, b...)
	}
	return append(buf, 0x00, 0x00)
}

func decodeUTF16NullTerminated(b []byte) string {
	var units []uint16
	for i := 0; i+1 < len(b); i += 2 {
		u := binary.BigEndian.Uint16(b[i : i+2])
		if u == 0x0000 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

package apparams

import (
	"encoding/binary"

	"github.com/bmwcarit/gopbap/pbaperrors"
	"github.com/charmbracelet/log"
)

// Decode walks a PBAP Application Parameters payload and returns the
// request-side parameter record. Unknown tags are a hard MalformedParams
// error rather than a length-driven skip: known-good peers never emit them,
// and silently tolerating one can mask an interop bug (§4.A).
func Decode(data []byte) (RequestParams, error) {
	p := DefaultRequestParams()
	seen := make(map[Tag]bool, len(tagWidths))

	offset := 0
	for offset < len(data) {
		if offset+2 > len(data) {
			return RequestParams{}, pbaperrors.New(pbaperrors.KindMalformedParams, "apparams.Decode", "truncated tag/length header")
		}
		tag := Tag(data[offset])
		length := int(data[offset+1])
		valueStart := offset + 2
		valueEnd := valueStart + length
		if valueEnd > len(data) {
			return RequestParams{}, pbaperrors.New(pbaperrors.KindMalformedParams, "apparams.Decode", "declared length exceeds buffer")
		}

		w, known := tagWidths[tag]
		if !known {
			return RequestParams{}, pbaperrors.New(pbaperrors.KindMalformedParams, "apparams.Decode", "unknown tag id")
		}
		if w != widthVar && int(w) != length {
			return RequestParams{}, pbaperrors.New(pbaperrors.KindMalformedParams, "apparams.Decode", "wrong length for tag "+tag.String())
		}
		if seen[tag] {
			return RequestParams{}, pbaperrors.New(pbaperrors.KindMalformedParams, "apparams.Decode", "duplicate tag "+tag.String())
		}
		seen[tag] = true

		value := data[valueStart:valueEnd]
		switch tag {
		case TagOrder:
			p.Order = value[0]
		case TagSearchValue:
			p.SearchValue = append([]byte(nil), value...)
		case TagSearchAttribute:
			p.SearchAttribute = value[0]
		case TagMaxListCount:
			p.MaxListCount = binary.BigEndian.Uint16(value)
			p.hasMaxListCount = true
		case TagListStartOffset:
			p.ListStartOffset = binary.BigEndian.Uint16(value)
		case TagFilter:
			p.Filter = binary.BigEndian.Uint64(value)
		case TagFormat:
			p.Format = value[0]
		default:
			log.Debug("apparams: ignoring response-only tag in request", "tag", tag)
		}

		offset = valueEnd
	}

	return p, nil
}

// EncodeRequest renders a RequestParams back to wire form, used by the
// client core. Parameters are emitted in ascending tag order so encoding
// is deterministic (the wire format itself is order-indifferent).
func EncodeRequest(p RequestParams, fields ...Tag) []byte {
	var out []byte
	want := make(map[Tag]bool, len(fields))
	for _, f := range fields {
		want[f] = true
	}

	if want[TagOrder] {
		out = append(out, byte(TagOrder), 1, p.Order)
	}
	if want[TagSearchValue] && len(p.SearchValue) > 0 {
		out = append(out, byte(TagSearchValue), byte(len(p.SearchValue)))
		out = append(out, p.SearchValue...)
	}
	if want[TagSearchAttribute] {
		out = append(out, byte(TagSearchAttribute), 1, p.SearchAttribute)
	}
	if want[TagMaxListCount] {
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, p.MaxListCount)
		out = append(out, byte(TagMaxListCount), 2)
		out = append(out, buf...)
	}
	if want[TagListStartOffset] {
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, p.ListStartOffset)
		out = append(out, byte(TagListStartOffset), 2)
		out = append(out, buf...)
	}
	if want[TagFilter] {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, p.Filter)
		out = append(out, byte(TagFilter), 8)
		out = append(out, buf...)
	}
	if want[TagFormat] {
		out = append(out, byte(TagFormat), 1, p.Format)
	}

	return out
}

// EncodeResponse renders a ResponseParams back to wire form (§3 "Response
// parameters"), used by the transaction engine.
func EncodeResponse(r ResponseParams) []byte {
	var out []byte
	if r.HasPhonebookSize {
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, r.PhonebookSize)
		out = append(out, byte(TagPhonebookSize), 2)
		out = append(out, buf...)
	}
	if r.HasNewMissedCalls {
		out = append(out, byte(TagNewMissedCalls), 1, r.NewMissedCalls)
	}
	return out
}

// DecodeResponse is the client-side counterpart of EncodeResponse.
func DecodeResponse(data []byte) (ResponseParams, error) {
	var r ResponseParams
	offset := 0
	for offset < len(data) {
		if offset+2 > len(data) {
			return ResponseParams{}, pbaperrors.New(pbaperrors.KindMalformedParams, "apparams.DecodeResponse", "truncated tag/length header")
		}
		tag := Tag(data[offset])
		length := int(data[offset+1])
		valueStart := offset + 2
		valueEnd := valueStart + length
		if valueEnd > len(data) {
			return ResponseParams{}, pbaperrors.New(pbaperrors.KindMalformedParams, "apparams.DecodeResponse", "declared length exceeds buffer")
		}
		value := data[valueStart:valueEnd]
		switch tag {
		case TagPhonebookSize:
			r.PhonebookSize = binary.BigEndian.Uint16(value)
			r.HasPhonebookSize = true
		case TagNewMissedCalls:
			r.NewMissedCalls = value[0]
			r.HasNewMissedCalls = true
		default:
			log.Debug("apparams: ignoring request-only tag in response", "tag", tag)
		}
		offset = valueEnd
	}
	return r, nil
}

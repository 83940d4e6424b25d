// Package apparams implements the PBAP Application-Parameters tag-length-
// value codec carried inside the OBEX Application Parameters header. It has
// no knowledge of OBEX framing or vCards; it only turns one opaque byte
// slice into a typed parameter record and back.
package apparams

// Tag identifies one PBAP application parameter. Values and widths are
// fixed by the PBAP specification; unlike a DICOM transfer syntax these
// never vary per negotiation, so the table below is the single source of
// truth the codec and the engine both read from.
type Tag byte

const (
	TagOrder           Tag = 0x01
	TagSearchValue     Tag = 0x02
	TagSearchAttribute Tag = 0x03
	TagMaxListCount    Tag = 0x04
	TagListStartOffset Tag = 0x05
	TagFilter          Tag = 0x06
	TagFormat          Tag = 0x07
	TagPhonebookSize   Tag = 0x08
	TagNewMissedCalls  Tag = 0x09
)

// width classifies a tag's value encoding. widthVar tags carry a value of
// any length; the others are fixed-size big-endian integers.
type width int

const (
	width1Byte width = 1
	width2Byte width = 2
	width8Byte width = 8
	widthVar   width = -1
)

var tagWidths = map[Tag]width{
	TagOrder:          width1Byte,
	TagSearchValue:     widthVar,
	TagSearchAttribute: width1Byte,
	TagMaxListCount:    width2Byte,
	TagListStartOffset: width2Byte,
	TagFilter:          width8Byte,
	TagFormat:          width1Byte,
	TagPhonebookSize:   width2Byte,
	TagNewMissedCalls:  width1Byte,
}

func (t Tag) String() string {
	switch t {
	case TagOrder:
		return "Order"
	case TagSearchValue:
		return "SearchValue"
	case TagSearchAttribute:
		return "SearchAttribute"
	case TagMaxListCount:
		return "MaxListCount"
	case TagListStartOffset:
		return "ListStartOffset"
	case TagFilter:
		return "Filter"
	case TagFormat:
		return "Format"
	case TagPhonebookSize:
		return "PhonebookSize"
	case TagNewMissedCalls:
		return "NewMissedCalls"
	default:
		return "Unknown"
	}
}

// Order values for vCard-listing requests.
const (
	OrderIndexed      byte = 0
	OrderAlphanumeric byte = 1
	OrderPhonetical   byte = 2
)

// SearchAttribute values for vCard-listing requests.
const (
	SearchAttributeName   byte = 0
	SearchAttributeNumber byte = 1
	SearchAttributeSound  byte = 2
)

// Format values.
const (
	FormatV21 byte = 0
	FormatV30 byte = 1
)

// MaxListCountUnrestricted is the default "no limit" sentinel.
const MaxListCountUnrestricted uint16 = 65535

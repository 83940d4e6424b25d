package apparams

// RequestParams is the decoded application-parameters record carried on a
// PBAP GET request (§3 "Phonebook request parameters"). The PBAP defaults
// come from DefaultRequestParams; the zero value differs from them in
// MaxListCount (0 instead of 65535).
type RequestParams struct {
	Order           byte
	SearchAttribute byte
	SearchValue     []byte
	MaxListCount    uint16
	ListStartOffset uint16
	Filter          uint64
	Format          byte

	hasMaxListCount bool // distinguishes "0 sent on the wire" from "absent"
}

// DefaultRequestParams matches the defaults §3 lists for a request that
// supplies no application parameters at all.
func DefaultRequestParams() RequestParams {
	return RequestParams{
		Order:           OrderIndexed,
		SearchAttribute: SearchAttributeName,
		SearchValue:     nil,
		MaxListCount:    MaxListCountUnrestricted,
		ListStartOffset: 0,
		Filter:          0,
		Format:          FormatV21,
	}
}

// HasMaxListCount reports whether MaxListCount was explicitly present on
// the wire (as opposed to defaulted), which matters because a present-and-
// zero value has "return size only" semantics (§3) distinct from its
// absence.
func (p RequestParams) HasMaxListCount() bool {
	return p.hasMaxListCount
}

// ResponseParams is the application-parameters record attached to a PBAP
// GET response (§3 "Response parameters").
type ResponseParams struct {
	PhonebookSize     uint16
	HasPhonebookSize  bool
	NewMissedCalls    byte
	HasNewMissedCalls bool
}

package obex

// SDPRecord describes the Bluetooth service record a real PSE would
// register over BlueZ/D-Bus. Actual SDP registration is out of scope for
// this module (§1); this type exists so the server can log and report the
// values a real transport would need, grounded on the fixed constants the
// original service used at startup.
type SDPRecord struct {
	ServiceClassID uint16
	ProfileID      uint16
	ProfileVersion uint16
	TargetUUID     [16]byte
}

// PBAPPSERecord is the fixed PSE service record per §6.
var PBAPPSERecord = SDPRecord{
	ServiceClassID: 0x112F,
	ProfileID:      0x1130,
	ProfileVersion: 0x0101,
	TargetUUID: [16]byte{
		0x79, 0x61, 0x35, 0xF0, 0xF0, 0xC5, 0x11, 0xD8,
		0x09, 0x66, 0x08, 0x00, 0x20, 0x0C, 0x9A, 0x66,
	},
}

func (r SDPRecord) String() string {
	return "PBAP-PSE service class 0x112F, profile 0x1130/0x0101"
}

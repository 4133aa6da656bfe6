package protocol

const (
	// MarkerRegister opens a registration datagram.
	MarkerRegister byte = 0x00
	// MarkerEnd closes a registration datagram. It can never appear inside
	// valid UTF-8, so the identity needs no escaping.
	MarkerEnd byte = 0xFF

	// PunchByte is the only byte of a punch datagram.
	PunchByte byte = 0x00

	// MaxDatagramSize is the largest UDP payload we try to read.
	MaxDatagramSize = 64 * 1024
)

type PacketKind uint8

const (
	KindUnknown PacketKind = iota
	KindRegistration
	KindPunch
	KindText
)

func (k PacketKind) String() string {
	switch k {
	case KindRegistration:
		return "REGISTRATION"
	case KindPunch:
		return "PUNCH"
	case KindText:
		return "TEXT"
	default:
		return "UNKNOWN"
	}
}

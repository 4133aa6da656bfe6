package protocol

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrInvalidIdentity       = errors.New("identity must be non-empty valid UTF-8")
	ErrMalformedRegistration = errors.New("malformed registration packet")
)

// Registration announces a client identity to the rendezvous server.
type Registration struct {
	Identity string
}

func (r Registration) MarshalBinary() ([]byte, error) {
	if r.Identity == "" || !utf8.ValidString(r.Identity) {
		return nil, ErrInvalidIdentity
	}

	packet := make([]byte, 0, len(r.Identity)+2)
	packet = append(packet, MarkerRegister)
	packet = append(packet, r.Identity...)
	packet = append(packet, MarkerEnd)
	return packet, nil
}

func (r *Registration) UnmarshalBinary(data []byte) error {
	if len(data) < 3 {
		return fmt.Errorf("%w: %d bytes", ErrMalformedRegistration, len(data))
	}
	if data[0] != MarkerRegister {
		return fmt.Errorf("%w: leading marker 0x%02X", ErrMalformedRegistration, data[0])
	}
	if data[len(data)-1] != MarkerEnd {
		return fmt.Errorf("%w: trailing marker 0x%02X", ErrMalformedRegistration, data[len(data)-1])
	}

	identity := data[1 : len(data)-1]
	if !utf8.Valid(identity) {
		return fmt.Errorf("%w: %w", ErrMalformedRegistration, ErrInvalidIdentity)
	}

	r.Identity = string(identity)
	return nil
}

// PunchPacket returns a fresh single-byte punch datagram.
func PunchPacket() []byte {
	return []byte{PunchByte}
}

func IsPunch(payload []byte) bool {
	return len(payload) == 1 && payload[0] == PunchByte
}

// Classify guesses the kind of a datagram from its bytes alone.
func Classify(payload []byte) PacketKind {
	switch {
	case IsPunch(payload):
		return KindPunch
	case len(payload) >= 3 && payload[0] == MarkerRegister && payload[len(payload)-1] == MarkerEnd:
		return KindRegistration
	case utf8.Valid(payload):
		return KindText
	default:
		return KindUnknown
	}
}

package session

import (
	"context"
	"net/netip"
	"time"
)

type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Record is one line of the chat transcript.
type Record struct {
	Direction Direction
	Peer      netip.AddrPort
	Body      string
	At        time.Time
}

// Recorder persists the transcript. Errors are logged by the session and
// never end it.
type Recorder interface {
	Record(ctx context.Context, r Record) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Record) error { return nil }

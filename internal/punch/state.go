package punch

import "net/netip"

// State is either Unresolved or Punched.
type State interface {
	isState()
	String() string
}

// Unresolved: no peer address yet.
type Unresolved struct{}

func (Unresolved) isState() {}

func (Unresolved) String() string { return "unresolved" }

// Punched holds the peer address the punch packet was sent to. Only the
// Machine can produce one, and the address cannot be changed afterwards.
type Punched struct {
	peer netip.AddrPort
}

func (Punched) isState() {}

func (p Punched) String() string { return "punched " + p.peer.String() }

func (p Punched) Peer() netip.AddrPort {
	return p.peer
}

package transport

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
)

// AnyAddr binds on all IPv4 interfaces with an OS-assigned port.
const AnyAddr = "0.0.0.0:0"

// Transport is the single UDP socket shared by registration, the punch packet
// and the peer session.
type Transport struct {
	conn      *net.UDPConn
	closeOnce sync.Once
	closeErr  error
}

func NewTransport(addr string) (*Transport, error) {
	laddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolving local address %q: %w", addr, err)
	}

	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("binding UDP socket: %w", err)
	}

	return &Transport{conn: conn}, nil
}

func (t *Transport) LocalAddr() netip.AddrPort {
	return t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// SendTo writes one datagram to addr.
func (t *Transport) SendTo(payload []byte, addr netip.AddrPort) error {
	if _, err := t.conn.WriteToUDPAddrPort(payload, addr); err != nil {
		return fmt.Errorf("sending %d bytes to %s: %w", len(payload), addr, err)
	}
	return nil
}

// Receive reads one datagram into buf. The source address is unmapped so it
// compares equal to a plain IPv4 netip.AddrPort.
func (t *Transport) Receive(buf []byte) (int, netip.AddrPort, error) {
	n, addr, err := t.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		return 0, netip.AddrPort{}, err
	}
	return n, netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port()), nil
}

func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

// IsClosed reports whether err comes from using a closed transport.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

package rendezvous

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"time"
)

const (
	DefaultHTTPPort = 8080
	DefaultUDPPort  = 4200

	// DefaultLookupTimeout bounds a single lookup request.
	DefaultLookupTimeout = 5 * time.Second
)

// Endpoint is the rendezvous server: one IP, two services.
type Endpoint struct {
	IP       netip.Addr
	HTTPPort uint16
	UDPPort  uint16
}

func (e Endpoint) HTTPAddr() netip.AddrPort {
	return netip.AddrPortFrom(e.IP, e.HTTPPort)
}

func (e Endpoint) UDPAddr() netip.AddrPort {
	return netip.AddrPortFrom(e.IP, e.UDPPort)
}

func (e Endpoint) Validate() error {
	if !e.IP.Is4() {
		return fmt.Errorf("rendezvous address %s is not IPv4", e.IP)
	}
	if e.HTTPPort == 0 || e.UDPPort == 0 {
		return fmt.Errorf("rendezvous ports must be non-zero (http=%d, udp=%d)", e.HTTPPort, e.UDPPort)
	}
	return nil
}

type Config struct {
	HTTPAddr   netip.AddrPort
	HTTPClient *http.Client
	Logger     *slog.Logger
}

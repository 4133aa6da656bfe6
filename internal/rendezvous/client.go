package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
)

const maxErrorBody = 4 * 1024

type Client struct {
	config Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultLookupTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config: cfg,
		http:   httpClient,
		logger: logger,
	}
}

func (c *Client) WaitURL(peerName string) string {
	return fmt.Sprintf("http://%s/api/wait/%s", c.config.HTTPAddr, url.PathEscape(peerName))
}

// LookupPeer asks the rendezvous server for peerName's public address once.
// It returns ErrNotFound while the peer is unregistered, *TransportError on
// network failure, *ParseError for a malformed address and
// *UnexpectedStatusError for any status other than 200 or 404.
func (c *Client) LookupPeer(ctx context.Context, peerName string) (netip.AddrPort, error) {
	u := c.WaitURL(peerName)
	c.logger.Debug("Querying peer address", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("building lookup request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return netip.AddrPort{}, ctx.Err()
		}
		return netip.AddrPort{}, &TransportError{Op: "lookup", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("Lookup response", "status", resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return netip.AddrPort{}, &TransportError{Op: "read lookup response", Err: err}
		}
		return ParsePeerAddr(string(body))
	case http.StatusNotFound:
		return netip.AddrPort{}, ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return netip.AddrPort{}, &UnexpectedStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(body)),
		}
	}
}

// ParsePeerAddr parses the A.B.C.D:port body of a successful lookup.
func ParsePeerAddr(body string) (netip.AddrPort, error) {
	text := strings.TrimSpace(body)

	addr, err := netip.ParseAddrPort(text)
	if err != nil {
		return netip.AddrPort{}, &ParseError{Body: text, Err: err}
	}
	if !addr.Addr().Is4() {
		return netip.AddrPort{}, &ParseError{Body: text, Err: errors.New("not an IPv4 address")}
	}
	if addr.Port() == 0 {
		return netip.AddrPort{}, &ParseError{Body: text, Err: errors.New("port must be non-zero")}
	}
	return addr, nil
}

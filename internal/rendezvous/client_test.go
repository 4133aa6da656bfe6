package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/rudransh-shrivastava/peer-chat/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	addr, err := netip.ParseAddrPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("ParseAddrPort failed: %v", err)
	}

	return NewClient(Config{
		HTTPAddr: addr,
		Logger:   logger.NewLogger(),
	})
}

func TestLookupPeerFound(t *testing.T) {
	paths := make(chan string, 1)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		fmt.Fprint(w, "203.0.113.5:51000")
	})

	addr, err := client.LookupPeer(context.Background(), "other")
	if err != nil {
		t.Fatalf("LookupPeer failed: %v", err)
	}

	if want := netip.MustParseAddrPort("203.0.113.5:51000"); addr != want {
		t.Errorf("Expected %s, got %s", want, addr)
	}
	if got := <-paths; got != "/api/wait/other" {
		t.Errorf("Expected path /api/wait/other, got %s", got)
	}
}

func TestLookupPeerNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.LookupPeer(context.Background(), "other")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if IsFatal(err) {
		t.Error("ErrNotFound must not be fatal")
	}
}

func TestLookupPeerMalformedAddress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not-an-address")
	})

	_, err := client.LookupPeer(context.Background(), "other")

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected *ParseError, got %T: %v", err, err)
	}
	if parseErr.Body != "not-an-address" {
		t.Errorf("Expected body 'not-an-address', got %q", parseErr.Body)
	}
	if !IsFatal(err) {
		t.Error("ParseError must be fatal")
	}
}

func TestLookupPeerUnexpectedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rendezvous overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.LookupPeer(context.Background(), "other")

	var statusErr *UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected *UnexpectedStatusError, got %T: %v", err, err)
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", statusErr.Code)
	}
	if statusErr.Body != "rendezvous overloaded" {
		t.Errorf("Expected body 'rendezvous overloaded', got %q", statusErr.Body)
	}
	if !IsFatal(err) {
		t.Error("UnexpectedStatusError must be fatal")
	}
}

func TestLookupPeerTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := netip.MustParseAddrPort(srv.Listener.Addr().String())
	srv.Close()

	client := NewClient(Config{HTTPAddr: addr})

	_, err := client.LookupPeer(context.Background(), "other")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %T: %v", err, err)
	}
	if IsFatal(err) {
		t.Error("TransportError must not be fatal")
	}
}

func TestLookupPeerContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.LookupPeer(ctx, "other")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
	if !IsFatal(err) {
		t.Error("Context errors must stop polling")
	}
}

func TestWaitURLEscapesPeerName(t *testing.T) {
	client := NewClient(Config{HTTPAddr: netip.MustParseAddrPort("45.151.30.139:8080")})

	if got := client.WaitURL("other"); got != "http://45.151.30.139:8080/api/wait/other" {
		t.Errorf("Unexpected URL %s", got)
	}
	if got := client.WaitURL("a/b c"); got != "http://45.151.30.139:8080/api/wait/a%2Fb%20c" {
		t.Errorf("Unexpected escaped URL %s", got)
	}
}

func TestParsePeerAddr(t *testing.T) {
	tests := []struct {
		body    string
		want    string
		wantErr bool
	}{
		{"203.0.113.5:51000", "203.0.113.5:51000", false},
		{"198.51.100.7:40000\n", "198.51.100.7:40000", false},
		{"not-an-address", "", true},
		{"203.0.113.5", "", true},
		{"[2001:db8::1]:4000", "", true},
		{"203.0.113.5:0", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		addr, err := ParsePeerAddr(tt.body)
		if tt.wantErr {
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("ParsePeerAddr(%q): expected *ParseError, got %v", tt.body, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePeerAddr(%q) failed: %v", tt.body, err)
			continue
		}
		if addr.String() != tt.want {
			t.Errorf("ParsePeerAddr(%q) = %s, want %s", tt.body, addr, tt.want)
		}
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"not found", ErrNotFound, false},
		{"wrapped not found", fmt.Errorf("poll: %w", ErrNotFound), false},
		{"transport", &TransportError{Op: "lookup", Err: errors.New("connection refused")}, false},
		{"parse", &ParseError{Body: "x", Err: errors.New("bad")}, true},
		{"status", &UnexpectedStatusError{Code: 500}, true},
		{"canceled", context.Canceled, true},
	}

	for _, tt := range tests {
		if got := IsFatal(tt.err); got != tt.expected {
			t.Errorf("IsFatal(%s) = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

package transport

import (
	"testing"
	"time"
)

func TestTransportCreateAndClose(t *testing.T) {
	tr, err := NewTransport(AnyAddr)
	if err != nil {
		t.Fatalf("NewTransport failed: %v", err)
	}

	addr := tr.LocalAddr()
	if addr.Port() == 0 {
		t.Error("Expected an OS-assigned port")
	}
	if !addr.Addr().Is4() {
		t.Errorf("Expected IPv4 local address, got %s", addr)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}

func TestTransportInvalidAddr(t *testing.T) {
	if _, err := NewTransport("not-an-addr"); err == nil {
		t.Error("Expected error for invalid local address")
	}
}

func TestTransportSendReceive(t *testing.T) {
	a, err := NewTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTransport a failed: %v", err)
	}
	defer func() { _ = a.Close() }()

	b, err := NewTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTransport b failed: %v", err)
	}
	defer func() { _ = b.Close() }()

	if err := a.SendTo([]byte("hello\n"), b.LocalAddr()); err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}

	_ = b.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, src, err := b.Receive(buf)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	if string(buf[:n]) != "hello\n" {
		t.Errorf("Expected 'hello\\n', got %q", buf[:n])
	}
	if src != a.LocalAddr() {
		t.Errorf("Expected source %s, got %s", a.LocalAddr(), src)
	}
}

func TestTransportReceiveAfterClose(t *testing.T) {
	tr, err := NewTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTransport failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, _, err := tr.Receive(make([]byte, 16))
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	_ = tr.Close()

	select {
	case err := <-errCh:
		if !IsClosed(err) {
			t.Errorf("Expected closed error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not unblock on Close")
	}
}

package rendezvous

import (
	"context"
	"log/slog"
	"net/netip"

	"github.com/rudransh-shrivastava/peer-chat/internal/protocol"
	"github.com/rudransh-shrivastava/peer-chat/internal/transport"
)

// Register binds the process's only UDP socket and announces identity to the
// rendezvous server from it. The server learns our public address from the
// datagram's source, so every later send must reuse the returned transport.
func Register(ctx context.Context, server netip.AddrPort, identity string, logger *slog.Logger) (*transport.Transport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	packet, err := protocol.EncodeRegistration(identity)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tr, err := transport.NewTransport(transport.AnyAddr)
	if err != nil {
		return nil, &TransportError{Op: "bind", Err: err}
	}

	logger.Info("Registering with rendezvous server", "server", server, "local", tr.LocalAddr(), "identity", identity)
	logger.Debug("Registration packet", "packet", packet)

	if err := tr.SendTo(packet, server); err != nil {
		_ = tr.Close()
		return nil, &TransportError{Op: "register", Err: err}
	}

	return tr, nil
}

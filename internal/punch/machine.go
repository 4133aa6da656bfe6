package punch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/rudransh-shrivastava/peer-chat/internal/protocol"
	"github.com/rudransh-shrivastava/peer-chat/internal/rendezvous"
)

const DefaultPollInterval = time.Second

type Lookuper interface {
	LookupPeer(ctx context.Context, peerName string) (netip.AddrPort, error)
}

type Sender interface {
	SendTo(payload []byte, addr netip.AddrPort) error
}

type Config struct {
	PeerName     string
	Lookup       Lookuper
	Conn         Sender
	PollInterval time.Duration
	Logger       *slog.Logger
	// OnPoll is called after every iteration that left the machine Unresolved.
	OnPoll func(attempt int)
}

// Machine drives Unresolved -> Punched: look the peer up, send one punch
// datagram, and retry at a fixed interval until both succeed.
type Machine struct {
	config Config
	logger *slog.Logger
	state  State
}

func NewMachine(cfg Config) *Machine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Machine{
		config: cfg,
		logger: logger.With("peer_name", cfg.PeerName),
		state:  Unresolved{},
	}
}

func (m *Machine) State() State {
	return m.state
}

// Step runs one lookup-and-punch iteration. Not-found and transport failures
// leave the machine Unresolved with a nil error; a broken rendezvous contract
// is returned as an error. Once Punched, Step is a no-op.
func (m *Machine) Step(ctx context.Context) (State, error) {
	if p, ok := m.state.(Punched); ok {
		return p, nil
	}

	addr, err := m.config.Lookup.LookupPeer(ctx, m.config.PeerName)
	switch {
	case err == nil:
	case errors.Is(err, rendezvous.ErrNotFound):
		m.logger.Warn("Peer not registered")
		return m.state, nil
	case rendezvous.IsFatal(err):
		return m.state, fmt.Errorf("looking up peer %q: %w", m.config.PeerName, err)
	default:
		m.logger.Error("Peer lookup failed", "error", err)
		return m.state, nil
	}

	m.logger.Info("Peer found", "addr", addr)

	// A failed punch throws the address away; the next iteration looks it up again.
	if err := m.config.Conn.SendTo(protocol.PunchPacket(), addr); err != nil {
		m.logger.Error("Initial punch failed", "addr", addr, "error", err)
		return m.state, nil
	}

	m.state = Punched{peer: addr}
	m.logger.Info("Punch sent", "addr", addr)
	return m.state, nil
}

// Run polls until the peer is punched, a fatal error occurs or ctx is done.
// There is no retry limit.
func (m *Machine) Run(ctx context.Context) (Punched, error) {
	timer := time.NewTimer(m.config.PollInterval)
	timer.Stop()
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		state, err := m.Step(ctx)
		if err != nil {
			return Punched{}, err
		}
		if p, ok := state.(Punched); ok {
			return p, nil
		}

		if m.config.OnPoll != nil {
			m.config.OnPoll(attempt)
		}

		timer.Reset(m.config.PollInterval)
		select {
		case <-ctx.Done():
			return Punched{}, ctx.Err()
		case <-timer.C:
		}
	}
}

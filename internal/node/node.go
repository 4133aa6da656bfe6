// Package node wires registration, peer establishment and the chat session
// into a single run.
package node

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"gorm.io/gorm"

	"github.com/rudransh-shrivastava/peer-chat/internal/db"
	"github.com/rudransh-shrivastava/peer-chat/internal/punch"
	"github.com/rudransh-shrivastava/peer-chat/internal/rendezvous"
	"github.com/rudransh-shrivastava/peer-chat/internal/session"
	"github.com/rudransh-shrivastava/peer-chat/internal/store"
	"github.com/rudransh-shrivastava/peer-chat/internal/transport"
)

const (
	DefaultName = "one"
	DefaultPeer = "other"
)

type Options struct {
	Name     string
	Peer     string
	Endpoint rendezvous.Endpoint

	PollInterval time.Duration
	HTTPClient   *http.Client

	// Input defaults to os.Stdin, Output (received messages) to os.Stdout.
	Input  io.Reader
	Output io.Writer
	// Progress receives the waiting spinner. Nil disables it.
	Progress io.Writer

	// HistoryPath enables the sqlite transcript when non-empty.
	HistoryPath string

	Logger *slog.Logger
}

type Node struct {
	opts   Options
	logger *slog.Logger

	conn    *transport.Transport
	history *gorm.DB
}

func New(opts Options) (*Node, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Peer == "" {
		opts.Peer = DefaultPeer
	}
	if err := opts.Endpoint.Validate(); err != nil {
		return nil, err
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Node{
		opts:   opts,
		logger: logger.With("name", opts.Name),
	}, nil
}

// Run registers, waits for the peer and chats until input EOF (nil) or a
// fatal error.
func (n *Node) Run(ctx context.Context) error {
	defer n.close()

	var recorder session.Recorder
	if n.opts.HistoryPath != "" {
		history, err := db.Open(n.opts.HistoryPath, &store.Entry{})
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		n.history = history
		recorder = store.NewHistoryStore(history)
	}

	conn, err := rendezvous.Register(ctx, n.opts.Endpoint.UDPAddr(), n.opts.Name, n.logger)
	if err != nil {
		return fmt.Errorf("registering %q: %w", n.opts.Name, err)
	}
	n.conn = conn
	n.logger.Info("Registered with rendezvous", "local_addr", conn.LocalAddr(), "server", n.opts.Endpoint.UDPAddr())

	client := rendezvous.NewClient(rendezvous.Config{
		HTTPAddr:   n.opts.Endpoint.HTTPAddr(),
		HTTPClient: n.opts.HTTPClient,
		Logger:     n.logger,
	})

	spinner := newWaitSpinner(n.opts.Progress, n.opts.Peer)
	machine := punch.NewMachine(punch.Config{
		PeerName:     n.opts.Peer,
		Lookup:       client,
		Conn:         conn,
		PollInterval: n.opts.PollInterval,
		Logger:       n.logger,
		OnPoll:       spinner.tick,
	})

	peer, err := machine.Run(ctx)
	spinner.finish()
	if err != nil {
		return fmt.Errorf("establishing connection to %q: %w", n.opts.Peer, err)
	}
	n.logger.Info("Connected to peer", "peer", peer.Peer())

	sess := session.New(conn, peer, session.Config{
		Input:     n.opts.Input,
		Logger:    n.logger,
		OnMessage: n.printMessage,
		Recorder:  recorder,
	})
	return sess.Run(ctx)
}

func (n *Node) printMessage(m session.Message) {
	if _, err := fmt.Fprintf(n.opts.Output, "%s: %s\n", n.opts.Peer, m.Text); err != nil {
		n.logger.Warn("Failed to print message", "error", err)
	}
}

func (n *Node) close() {
	if n.conn != nil {
		if err := n.conn.Close(); err != nil {
			n.logger.Warn("Failed to close transport", "error", err)
		}
	}
	if n.history != nil {
		if err := db.Close(n.history); err != nil {
			n.logger.Warn("Failed to close history", "error", err)
		}
	}
}

type waitSpinner struct {
	bar  *progressbar.ProgressBar
	peer string
}

func newWaitSpinner(out io.Writer, peer string) *waitSpinner {
	if out == nil {
		return &waitSpinner{}
	}
	return &waitSpinner{
		peer: peer,
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(fmt.Sprintf("waiting for %s", peer)),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (s *waitSpinner) tick(attempt int) {
	if s.bar == nil {
		return
	}
	s.bar.Describe(fmt.Sprintf("waiting for %s (attempt %d)", s.peer, attempt))
	_ = s.bar.Add(1)
}

func (s *waitSpinner) finish() {
	if s.bar == nil {
		return
	}
	_ = s.bar.Finish()
}

package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rudransh-shrivastava/peer-chat/internal/protocol"
	"github.com/rudransh-shrivastava/peer-chat/internal/punch"
	"github.com/rudransh-shrivastava/peer-chat/internal/transport"
)

// asciiWhitespace matches Rust-style ASCII whitespace: no vertical tab.
const asciiWhitespace = " \t\n\f\r"

type PacketConn interface {
	SendTo(payload []byte, addr netip.AddrPort) error
	Receive(buf []byte) (int, netip.AddrPort, error)
}

// Message is a line of text received from the peer.
type Message struct {
	From       netip.AddrPort
	Text       string
	ReceivedAt time.Time
}

type Config struct {
	Input     io.Reader
	Logger    *slog.Logger
	OnMessage func(Message)
	Recorder  Recorder
}

// DecodeError means the peer sent a datagram that is not UTF-8 text.
type DecodeError struct {
	From netip.AddrPort
	Size int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid UTF-8 in %d byte datagram from %s", e.Size, e.From)
}

type Session struct {
	conn      PacketConn
	peer      punch.Punched
	input     io.Reader
	logger    *slog.Logger
	onMessage func(Message)
	recorder  Recorder
}

func New(conn PacketConn, peer punch.Punched, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		conn:      conn,
		peer:      peer,
		input:     cfg.Input,
		logger:    logger.With("peer", peer.Peer()),
		onMessage: cfg.OnMessage,
		recorder:  cfg.Recorder,
	}
	if s.onMessage == nil {
		s.onMessage = func(m Message) {
			s.logger.Info("Received", "text", m.Text)
		}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s
}

func (s *Session) Peer() netip.AddrPort {
	return s.peer.Peer()
}

type lineEvent struct {
	line []byte
	err  error
}

type datagramEvent struct {
	payload []byte
	src     netip.AddrPort
	err     error
}

// Run forwards input lines to the peer and surfaces the peer's datagrams until
// input reaches EOF (nil error), input fails, the peer sends non-UTF-8 data or
// ctx is done. Whichever source is ready first is serviced first.
func (s *Session) Run(ctx context.Context) error {
	if s.input == nil {
		return errors.New("session has no input")
	}

	done := make(chan struct{})
	defer close(done)

	lines := make(chan lineEvent)
	datagrams := make(chan datagramEvent)

	go s.readLines(lines, done)
	go s.readDatagrams(datagrams, done)

	s.logger.Info("Session started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-lines:
			if ev.err != nil {
				if errors.Is(ev.err, io.EOF) {
					s.logger.Info("Input closed, ending session")
					return nil
				}
				return fmt.Errorf("reading input: %w", ev.err)
			}
			s.SendLine(ctx, ev.line)

		case ev, ok := <-datagrams:
			if !ok {
				s.logger.Debug("Transport closed, no longer receiving")
				datagrams = nil
				continue
			}
			if ev.err != nil {
				s.logger.Error("Socket receive error", "error", ev.err)
				continue
			}
			if err := s.HandleDatagram(ctx, ev.payload, ev.src); err != nil {
				return err
			}
		}
	}
}

// SendLine sends line, newline included, as one datagram. Send failures are
// logged and never end the session.
func (s *Session) SendLine(ctx context.Context, line []byte) {
	text := strings.TrimRight(string(line), asciiWhitespace)
	s.logger.Info("Sending message", "text", text)

	if err := s.conn.SendTo(line, s.peer.Peer()); err != nil {
		s.logger.Error("Failed to send message", "error", err)
		return
	}
	s.record(ctx, DirectionSent, text)
}

// HandleDatagram accepts text only from the punched peer. Anything else is
// dropped with a warning.
func (s *Session) HandleDatagram(ctx context.Context, payload []byte, src netip.AddrPort) error {
	if src != s.peer.Peer() {
		s.logger.Warn("Ignoring packet from unexpected source",
			"source", src, "kind", protocol.Classify(payload), "size", len(payload))
		return nil
	}

	if protocol.IsPunch(payload) {
		s.logger.Debug("Punch packet from peer")
		return nil
	}

	if !utf8.Valid(payload) {
		return &DecodeError{From: src, Size: len(payload)}
	}

	msg := Message{
		From:       src,
		Text:       strings.TrimRight(string(payload), asciiWhitespace),
		ReceivedAt: time.Now(),
	}
	s.record(ctx, DirectionReceived, msg.Text)
	s.onMessage(msg)
	return nil
}

func (s *Session) record(ctx context.Context, dir Direction, text string) {
	err := s.recorder.Record(ctx, Record{
		Direction: dir,
		Peer:      s.peer.Peer(),
		Body:      text,
		At:        time.Now(),
	})
	if err != nil {
		s.logger.Warn("Failed to record message", "direction", dir, "error", err)
	}
}

func (s *Session) readLines(out chan<- lineEvent, done <-chan struct{}) {
	r := bufio.NewReader(s.input)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			select {
			case out <- lineEvent{line: line}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case out <- lineEvent{err: err}:
			case <-done:
			}
			return
		}
	}
}

func (s *Session) readDatagrams(out chan<- datagramEvent, done <-chan struct{}) {
	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		n, src, err := s.conn.Receive(buf)
		if err != nil && transport.IsClosed(err) {
			close(out)
			return
		}

		ev := datagramEvent{err: err}
		if err == nil {
			ev.payload = append([]byte(nil), buf[:n]...)
			ev.src = src
		}

		select {
		case out <- ev:
		case <-done:
			return
		}
	}
}

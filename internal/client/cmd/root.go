package cmd

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rudransh-shrivastava/peer-chat/internal/logger"
	"github.com/rudransh-shrivastava/peer-chat/internal/node"
	"github.com/rudransh-shrivastava/peer-chat/internal/punch"
	"github.com/rudransh-shrivastava/peer-chat/internal/rendezvous"
)

const defaultRendezvous = "45.151.30.139"

type rootFlags struct {
	name         string
	peer         string
	rendezvous   string
	httpPort     uint16
	udpPort      uint16
	pollInterval time.Duration
	history      string
	logLevel     string
	quiet        bool
}

// NewRootCmd builds the peer-chat command. Chat text goes to stdout, logs and
// the waiting spinner to stderr.
func NewRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "peer-chat",
		Short: "chat with a peer over a UDP hole punched through NAT",
		Long: `peer-chat registers with a rendezvous server, waits for the named peer to
register too, punches a hole to its public address and then sends every
line typed on stdin to the peer while printing the peer's lines.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(stdin, stdout, stderr)
			if err != nil {
				return err
			}

			n, err := node.New(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return n.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.name, "name", "n", node.DefaultName, "identity to register with the rendezvous server")
	f.StringVarP(&flags.peer, "peer", "p", node.DefaultPeer, "identity of the peer to chat with")
	f.StringVar(&flags.rendezvous, "rendezvous", defaultRendezvous, "IPv4 address of the rendezvous server")
	f.Uint16Var(&flags.httpPort, "rendezvous-http-port", rendezvous.DefaultHTTPPort, "rendezvous HTTP lookup port")
	f.Uint16Var(&flags.udpPort, "rendezvous-udp-port", rendezvous.DefaultUDPPort, "rendezvous UDP registration port")
	f.DurationVar(&flags.pollInterval, "poll-interval", punch.DefaultPollInterval, "delay between peer lookups")
	f.StringVar(&flags.history, "history", "", "sqlite file to keep the transcript in (disabled when empty)")
	f.StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "hide the waiting spinner")

	return cmd
}

func (f *rootFlags) options(stdin io.Reader, stdout, stderr io.Writer) (node.Options, error) {
	ip, err := netip.ParseAddr(f.rendezvous)
	if err != nil {
		return node.Options{}, fmt.Errorf("invalid --rendezvous %q: %w", f.rendezvous, err)
	}

	level, err := logger.ParseLevel(f.logLevel)
	if err != nil {
		return node.Options{}, fmt.Errorf("invalid --log-level: %w", err)
	}

	opts := node.Options{
		Name: f.name,
		Peer: f.peer,
		Endpoint: rendezvous.Endpoint{
			IP:       ip,
			HTTPPort: f.httpPort,
			UDPPort:  f.udpPort,
		},
		PollInterval: f.pollInterval,
		Input:        stdin,
		Output:       stdout,
		HistoryPath:  f.history,
		Logger:       logger.New(stderr, level),
	}
	if !f.quiet {
		opts.Progress = stderr
	}
	return opts, nil
}

func Execute() {
	log := logger.NewCLILogger(os.Stderr)

	rootCmd := NewRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

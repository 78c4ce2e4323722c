// Command tango drives a peer-to-peer netplay session. Real emulator
// cores are provided by the embedding frontend; the demo subcommand
// exercises the full stack with the built-in scripted game.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andersfylling/tango/internal/console"
	"github.com/andersfylling/tango/internal/demo"
	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/network"
	"github.com/andersfylling/tango/internal/protocol"
	"github.com/andersfylling/tango/internal/session"
)

// Version is set at build time
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tango",
		Short:         "rollback netplay core",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(demoCmd())
	return root
}

type demoFlags struct {
	listen     string
	connect    string
	nickname   string
	delay      uint32
	tickRate   int
	ui         bool
	noRollback bool
	verbose    bool
}

func demoCmd() *cobra.Command {
	var flags demoFlags

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "run a netplay session against a peer using the built-in scripted game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.listen, "listen", "", "wait for a peer on this address (answerer)")
	cmd.Flags().StringVar(&flags.connect, "connect", "", "connect to a waiting peer (offerer)")
	cmd.Flags().StringVar(&flags.nickname, "nickname", "player", "nickname shown to the peer")
	cmd.Flags().Uint32Var(&flags.delay, "delay", 3, "input delay window in ticks")
	cmd.Flags().IntVar(&flags.tickRate, "tick-rate", 60, "frames per second (0 = unthrottled)")
	cmd.Flags().BoolVar(&flags.ui, "ui", false, "show the live session dashboard")
	cmd.Flags().BoolVar(&flags.noRollback, "no-rollback", false, "run lockstep instead of rollback")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func runDemo(ctx context.Context, flags demoFlags) error {
	if (flags.listen == "") == (flags.connect == "") {
		return fmt.Errorf("exactly one of --listen or --connect is required")
	}

	level := zerolog.InfoLevel
	if flags.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	var (
		ch  *network.TCPChannel
		err error
	)
	isOfferer := flags.connect != ""
	if isOfferer {
		log.Info().Str("addr", flags.connect).Msg("connecting to peer")
		ch, err = network.Dial(flags.connect)
	} else {
		log.Info().Str("addr", flags.listen).Msg("waiting for peer")
		ch, err = network.Listen(flags.listen)
	}
	if err != nil {
		return err
	}
	log.Info().Stringer("peer", ch.RemoteAddr()).Msg("channel open")

	cfg := session.DefaultConfig()
	cfg.Nickname = flags.nickname
	cfg.Delay = flags.delay
	cfg.TickRate = flags.tickRate
	cfg.IsOfferer = isOfferer
	cfg.GameInfo = &protocol.GameInfo{Title: demo.Title}
	cfg.AvailableGames = []string{demo.Title}

	adapter := demo.NewAdapter(!flags.noRollback)
	sess := session.New(
		cfg,
		ch,
		demo.NewCore(),
		func() (emulator.Core, error) { return demo.NewCore(), nil },
		demo.NewCore(),
		adapter,
		adapter,
		[]byte("demo-save-"+flags.nickname),
		log,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if flags.ui {
		go func() {
			if err := console.New(sess).Run(ctx); err != nil {
				log.Error().Err(err).Msg("console failed")
			}
			cancel()
		}()
	}

	if err := sess.Run(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if m := sess.Match(); m != nil {
		st := m.Status()
		log.Info().
			Uint32("rounds", st.RoundsPlayed).
			Str("last_result", st.LastResult).
			Msg("session complete")
	}
	return nil
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"levelranks/replay"
)

var tickEvery time.Duration

var replayCmd = &cobra.Command{
	Use:   "replay <demo.dem>",
	Short: "score a recorded CS demo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open demo: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat demo: %w", err)
		}
		clock := replay.NewClock(info.ModTime())
		sess, store, err := openSession(cfg, clock)
		if err != nil {
			return err
		}

		r := replay.New(sess, clock, replay.WithTickInterval(tickEvery), replay.WithLogger(slog.Default()))
		stats, runErr := r.Run(ctx, f)
		slog.Info("replay finished",
			"demo", args[0],
			"players", stats.Players,
			"rounds", stats.Rounds,
			"kills", stats.Kills,
			"events", stats.Events)

		defer func() {
			if err := closeAll(sess, store); err != nil {
				slog.Error("failed to close session", "error", err)
			}
		}()
		if runErr != nil {
			return runErr
		}
		if err := sess.FlushAll(ctx); err != nil {
			return fmt.Errorf("write players: %w", err)
		}
		return printStandings(ctx, cmd.OutOrStdout(), sess, topN)
	},
}

func init() {
	replayCmd.Flags().DurationVar(&tickEvery, "tick", time.Minute, "demo time between playtime ticks; 0 disables")
	rootCmd.AddCommand(replayCmd)
}

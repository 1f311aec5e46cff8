package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"levelranks/config"
	"levelranks/engine"
	"levelranks/replay"
	"levelranks/session"
)

var (
	configPath string
	logLevel   string
	topN       int
)

var rootCmd = &cobra.Command{
	Use:           "levelranks-sim",
	Short:         "score CS matches offline against levelranks storage",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.json or .toml); defaults to LEVELRANKS_* environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().IntVar(&topN, "top", 10, "standings to print when done")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// openSession builds a synchronous session driven by clock. The caller
// closes both the session and the returned storage.
func openSession(cfg *config.Config, clock *replay.Clock) (*session.Session, engine.Persistence, error) {
	store, err := cfg.Storage.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Adapter, err)
	}
	opts := append(cfg.SessionOptions(slog.Default()),
		session.WithPersistence(store),
		session.WithDispatchMode(engine.DispatchSync),
		session.WithClock(clock.Now),
	)
	return session.New(opts...), store, nil
}

func closeAll(sess *session.Session, store engine.Persistence) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := sess.Close(ctx)
	if c, ok := store.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func printStandings(ctx context.Context, w io.Writer, sess *session.Session, n int) error {
	if n <= 0 {
		return nil
	}
	top, err := sess.Top(ctx, n)
	if err != nil {
		return fmt.Errorf("read standings: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tID\tPOINTS\tRANK")
	for i, s := range top {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i+1, s.Name, s.ID, s.Points, sess.Ranks().Resolve(s.Points).Name)
	}
	return tw.Flush()
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/questlines/engine/internal/backend"
	"github.com/questlines/engine/internal/kvstore"
	"github.com/questlines/engine/internal/session"
	"github.com/questlines/engine/pkg/config"
	"github.com/questlines/engine/pkg/logger"
)

// app carries what every subcommand needs. It is built in the root
// command's PersistentPreRunE and closed by main.
type app struct {
	cfg     *config.Config
	store   kvstore.Store
	backend backend.Backend
	session *session.Session
	out     io.Writer
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if _, err := logger.InitWriter(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		return err
	}

	// preferences live in the local store in both modes
	store, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	b, err := backend.New(cfg, store)
	if err != nil {
		_ = store.Close()
		return err
	}

	a.cfg = cfg
	a.store = store
	a.backend = b
	a.session = session.New(b, session.NewPreferences(store), session.OptionsFromConfig(cfg))
	logger.L().Debug("questctl ready", zap.String("mode", cfg.AppMode), zap.String("store", cfg.StoreDriver))
	return nil
}

func (a *app) close() {
	if c, ok := a.backend.(io.Closer); ok {
		_ = c.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	logger.Sync()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "questctl",
		Short: "Edit and track questlines from the terminal",
		Long: `questctl works on questlines, graphs of quests linked by prerequisites.
A quest can only be completed once its objectives are done and every
prerequisite is complete; reopening a quest reopens everything after it.

APP_MODE=remote talks to the questlines service at API_BASE_URL,
APP_MODE=local keeps everything in the store selected by STORE_DRIVER.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.out == nil {
				a.out = cmd.OutOrStdout()
			}
			return a.open(cmd.Context())
		},
	}

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newNewCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newCompleteCmd(a, true),
		newCompleteCmd(a, false),
		newCheckCmd(a),
		newLinkCmd(a),
		newDeleteCmd(a),
		newThemeCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

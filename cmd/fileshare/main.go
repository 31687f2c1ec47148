package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	fileshareapp "fileshare/server/app"
	commonlog "fileshare/server/common/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		commonlog.Errorf("%v", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fileshare",
		Short:         "File sharing server with expiring links",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCommand(), newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the metadata schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := fileshareapp.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return fileshareapp.Migrate(cfg)
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := fileshareapp.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := fileshareapp.Migrate(cfg); err != nil {
		return fmt.Errorf("migrate %s: %w", cfg.MetadataDriver, err)
	}

	server, err := fileshareapp.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("initialize fileshare server: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		commonlog.Infof("start fileshare http server on :%s (metadata=%s, objects=%s)", cfg.Port, cfg.MetadataDriver, cfg.ObjectStoreDriver)
		if err := server.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = server.Shutdown(context.Background())
			return fmt.Errorf("run fileshare http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		commonlog.Errorf("shutdown fileshare server gracefully: %v", err)
	}
	return nil
}

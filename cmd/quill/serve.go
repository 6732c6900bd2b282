package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teilomillet/quill/config"
	"github.com/teilomillet/quill/errors"
	"github.com/teilomillet/quill/logging"
	"github.com/teilomillet/quill/server"
)

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, fromFile, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = logger.Close() }()
			errors.SetLogger(logger.Logger)

			var srv *server.Server
			if fromFile {
				srv, err = server.NewServer(*configFile, logger)
			} else {
				srv, err = server.NewServerWithConfig(config.NewStaticWatcher(cfg), logger)
			}
			if err != nil {
				logger.Error("server initialization failed", zap.Error(err), zap.String("config_path", *configFile))
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting quill",
				zap.String("version", Version),
				zap.Int("port", cfg.Server.Port),
			)
			if err := srv.Start(ctx); err != nil {
				logger.Error("server error", zap.Error(err))
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
}

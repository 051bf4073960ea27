package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glimte/svc-compliance/internal/config"
	"github.com/glimte/svc-compliance/internal/logging"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "svc-compliance",
		Short: "Regional flight plan compliance gateway",
		Long: `svc-compliance accepts flight plan submissions and release requests over gRPC,
applies the compliance rules of the configured region and announces accepted
plans on the RabbitMQ flightplan exchange.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC and admin servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger, nil)
			if err != nil {
				logger.Error("startup failed", "error", err)
				return err
			}
			defer a.close()

			grpcLis, err := net.Listen("tcp", cfg.GRPCAddr())
			if err != nil {
				return fmt.Errorf("gRPC server failed to listen: %w", err)
			}

			var adminLis net.Listener
			if cfg.Observability.AdminAddr != "" {
				adminLis, err = net.Listen("tcp", cfg.Observability.AdminAddr)
				if err != nil {
					grpcLis.Close()
					return fmt.Errorf("admin server failed to listen: %w", err)
				}
			}

			return a.run(ctx, grpcLis, adminLis)
		},
	}

	topologyCmd := &cobra.Command{
		Use:   "topology",
		Short: "Declare the broker topology and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := declareTopology(ctx, pool, cfg, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exchange %s, queue %s, routing key %s declared\n",
				cfg.AMQP.Exchange, cfg.AMQP.Queue, cfg.AMQP.RoutingKey)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "svc-compliance %s\n", rootCmd.Version)
		},
	}

	rootCmd.AddCommand(serveCmd, topologyCmd, versionCmd)
	return rootCmd
}

// setup loads the configuration (file, then environment) and builds the logger.
func setup(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath, os.LookupEnv)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

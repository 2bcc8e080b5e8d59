package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evangambit/Gamgee/internal/config"
	"github.com/evangambit/Gamgee/internal/logging"
	"github.com/evangambit/Gamgee/internal/server"
)

var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type options struct {
	configPath string
	root       string
	watchDir   string
	noWatch    bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "devserver [port]",
	Short: "Static development server with range requests and live reload",
	Long: `devserver serves a build directory with byte-range support for media,
cross-origin isolation headers on every response, and a browser reload
whenever a watched source file changes.`,
	Args:          cobra.MaximumNArgs(1),
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file (yaml, json or toml)")
	rootCmd.Flags().StringVar(&opts.root, "root", "", "Directory to serve (default dist)")
	rootCmd.Flags().StringVar(&opts.watchDir, "watch-dir", "", "Directory to watch for source changes (default .)")
	rootCmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Disable the file watcher")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "devserver:", err)
		os.Exit(1)
	}
}

// parsePort accepts a decimal TCP port.
func parsePort(arg string) (int, error) {
	port, err := strconv.Atoi(arg)
	if err != nil || port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q: must be a number between 0 and 65535", arg)
	}
	return port, nil
}

// applyOverrides layers the positional port and flags over the loaded config.
func applyOverrides(cfg *config.Config, args []string, o options) error {
	if len(args) == 1 {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}
		host, _, err := net.SplitHostPort(cfg.Server.Listen)
		if err != nil {
			host = ""
		}
		cfg.Server.Listen = net.JoinHostPort(host, strconv.Itoa(port))
	}
	if o.root != "" {
		cfg.Static.Root = o.root
	}
	if o.watchDir != "" {
		cfg.Watch.Dir = o.watchDir
	}
	if o.noWatch {
		off := false
		cfg.Watch.Enabled = &off
	}
	return nil
}

func serve(parent context.Context, args []string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, args, opts); err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	server.Version = Version

	if cfg.Watch.IsEnabled() {
		w := srv.NewWatcher()
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("watcher exited", "err", err)
			}
		}()
		defer w.Stop()
	}

	if cfg.Server.HotReload && opts.configPath != "" {
		err := config.Watch(ctx, opts.configPath, func(newCfg *config.Config) {
			if err := applyOverrides(newCfg, args, opts); err != nil {
				logger.Error("config reload rejected", "err", err)
				return
			}
			if err := srv.Reload(newCfg); err != nil {
				logger.Error("config reload failed", "err", err)
			}
		})
		if err != nil {
			logger.Warn("config hot reload disabled", "path", opts.configPath, "err", err)
		}
	}

	printBanner(os.Stderr, cfg)

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("devserver stopped")
	return nil
}

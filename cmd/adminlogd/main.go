package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/activation"
	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/modoterra/adminlog/internal/buildinfo"
	"github.com/modoterra/adminlog/pkg/config"
	"github.com/modoterra/adminlog/pkg/daemon"
	"github.com/modoterra/adminlog/pkg/daemon/service"
	"github.com/modoterra/adminlog/pkg/records"
)

var (
	configPath string
	listenFlag string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adminlogd",
	Short: "Admin log protocol daemon",
	Long:  "adminlogd answers getModuleInfo and refreshLog on a websocket and serves the module's translation files.",
	RunE:  runDaemon,

	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "adminlog.yaml", "path to adminlog.yaml")
	rootCmd.Flags().StringVar(&listenFlag, "listen", "", "listen address, overrides daemon.listen")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadDaemonConfig() (config.DaemonConfig, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return config.DaemonConfig{}, err
	}
	dc := c.Daemon
	if listenFlag != "" {
		dc.Listen = listenFlag
	}
	if errs := config.ValidateDaemon(dc); len(errs) > 0 {
		return dc, errors.Join(errs...)
	}
	return dc, nil
}

func newOptions(dc config.DaemonConfig, logger *slog.Logger) (daemon.Options, error) {
	retention, err := dc.RetentionDuration()
	if err != nil {
		return daemon.Options{}, err
	}
	watch, err := dc.WatchInterval()
	if err != nil {
		return daemon.Options{}, err
	}
	return daemon.Options{
		AdminPath:     dc.AdminPath,
		ServicePrefix: dc.ServicePrefix,
		Module:        dc.Module.ModuleInfo(),
		Source:        records.NewFileSource(dc.Records, logger, records.WithRetention(retention)),
		L10nDir:       dc.L10nDir,
		RateLimit:     dc.RateLimit,
		RateBurst:     dc.RateBurst,
		WatchInterval: watch,
	}, nil
}

// listener prefers a socket passed by systemd and falls back to listening
// on addr.
func listener(addr string, logger *slog.Logger) (net.Listener, error) {
	lns, err := activation.Listeners()
	if err != nil {
		return nil, fmt.Errorf("socket activation: %w", err)
	}
	for _, ln := range lns {
		if ln != nil {
			logger.Info("using socket from systemd", "addr", ln.Addr().String())
			return ln, nil
		}
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func runDaemon(_ *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	dc, err := loadDaemonConfig()
	if err != nil {
		return err
	}
	opts, err := newOptions(dc, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ln, err := listener(dc.Listen, logger)
	if err != nil {
		return err
	}

	d := daemon.New(opts, logger)
	if _, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady); err != nil {
		logger.Warn("sd_notify failed", "err", err)
	}

	logger.Info("starting adminlogd", "version", buildinfo.Version, "module", opts.Module.Name, "records", dc.Records)
	err = d.Run(ctx, ln)
	_, _ = sddaemon.SdNotify(false, sddaemon.SdNotifyStopping)
	if err != nil {
		logger.Error("daemon error", "err", err)
		return err
	}
	logger.Info("shutting down")
	return nil
}

// --- Service ---

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the adminlogd systemd user service",
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and start the socket-activated user service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dc, err := loadDaemonConfig()
		if err != nil {
			return err
		}
		if err := service.Install(cmd.Context(), configPath, dc.Listen); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "adminlogd.socket installed and started")
		return nil
	},
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the user service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := service.Uninstall(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "adminlogd service removed")
		return nil
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show listener and unit state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr := listenFlag
		if addr == "" {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			addr = c.Daemon.Listen
		}
		fmt.Fprintln(cmd.OutOrStdout(), service.Status(cmd.Context(), addr))
		return nil
	},
}

func init() {
	serviceStatusCmd.Flags().StringVar(&listenFlag, "listen", "", "address to probe, overrides daemon.listen")
	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "adminlogd %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	},
}

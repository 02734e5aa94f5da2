package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jmespath/go-jmespath"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/modoterra/adminlog/internal/buildinfo"
	"github.com/modoterra/adminlog/pkg/adminclient"
	"github.com/modoterra/adminlog/pkg/config"
	"github.com/modoterra/adminlog/pkg/l10n"
	"github.com/modoterra/adminlog/pkg/transport/ws"
	tuimodel "github.com/modoterra/adminlog/pkg/tui/model"
)

const defaultConfig = "adminlog.yaml"

var (
	configPath  string
	urlFlag     string
	originFlag  string
	prefixFlag  string
	localeFlag  string
	pageSize    int
	autoRefresh string
	logFile     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adminlog",
	Short: "Conversion log console for report-generation modules",
	Long:  "adminlog connects to a module's admin socket, fetches its conversion log and shows it as a sortable, searchable table.",
	RunE:  runTUI,

	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", defaultConfig, "path to adminlog.yaml")
	pf.StringVar(&urlFlag, "url", "", "admin socket URL (ws:// or wss://)")
	pf.StringVar(&originFlag, "origin", "", "module server origin, derived from --url when empty")
	pf.StringVar(&prefixFlag, "prefix", "", "service path prefix, e.g. /svc")
	pf.StringVar(&localeFlag, "locale", "", "display locale, defaults to $LANG")

	rootCmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page")
	rootCmd.Flags().StringVar(&autoRefresh, "auto-refresh", "", `refresh on a cron schedule, e.g. "@every 30s"`)
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write debug logs to this file")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveClient loads the client section and applies flag overrides.
func resolveClient() (config.ClientConfig, error) {
	var cc config.ClientConfig

	c, err := config.Load(configPath)
	switch {
	case err == nil:
		cc = c.Client
	case errors.Is(err, fs.ErrNotExist) && configPath == defaultConfig:
		// no config file; flags only
	default:
		return cc, err
	}

	if urlFlag != "" {
		cc.URL = urlFlag
	}
	if originFlag != "" {
		cc.Origin = originFlag
	}
	if prefixFlag != "" {
		cc.ServicePrefix = prefixFlag
	}
	if localeFlag != "" {
		cc.Locale = localeFlag
	}
	if pageSize > 0 {
		cc.PageSize = pageSize
	}
	if autoRefresh != "" {
		cc.AutoRefresh = autoRefresh
	}

	if cc.URL == "" {
		return cc, fmt.Errorf("no admin socket URL: pass --url or set client.url in %s", configPath)
	}
	if cc.Origin == "" {
		cc.Origin = originFromURL(cc.URL)
	}
	if cc.Locale == "" {
		cc.Locale = l10n.DetectLocale()
	}
	cc.Locale = l10n.NormalizeLocale(cc.Locale)

	if errs := config.ValidateClient(cc); len(errs) > 0 {
		return cc, errors.Join(errs...)
	}
	return cc, nil
}

// originFromURL maps ws://host to http://host and wss://host to https://host.
func originFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return scheme + "://" + u.Host
}

func clientConfig(cc config.ClientConfig) adminclient.Config {
	return adminclient.Config{
		Origin:        cc.Origin,
		ServicePrefix: cc.ServicePrefix,
		Locale:        cc.Locale,
	}
}

func handshakeHeader(cc config.ClientConfig) http.Header {
	h := http.Header{}
	for k, v := range cc.Headers {
		h.Set(k, v)
	}
	if h.Get("Origin") == "" {
		h.Set("Origin", cc.Origin)
	}
	return h
}

// --- Root: TUI ---

func runTUI(_ *cobra.Command, _ []string) error {
	cc, err := resolveClient()
	if err != nil {
		return err
	}

	logger, closeLog, err := openLog(logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	conn := ws.NewConn(cc.URL, handshakeHeader(cc), logger)
	bridge := tuimodel.NewBridge()
	client := adminclient.New(conn, bridge, clientConfig(cc), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := conn.Run(ctx, bridge.Wrap(client)); err != nil && ctx.Err() == nil {
			logger.Error("admin socket", "err", err)
			bridge.Fail(err)
		}
	}()

	if cc.AutoRefresh != "" {
		sched := cron.New()
		if _, err := sched.AddFunc(cc.AutoRefresh, client.Refresh); err != nil {
			return fmt.Errorf("auto refresh %q: %w", cc.AutoRefresh, err)
		}
		sched.Start()
		defer sched.Stop()
	}

	app := tuimodel.New(client, bridge, tuimodel.Options{
		Target:      cc.URL,
		PageSize:    cc.PageSize,
		AutoRefresh: cc.AutoRefresh,
		Logger:      logger,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()

	bridge.Close()
	conn.Close()
	return err
}

// openLog returns a logger writing to path, or one that discards when path
// is empty. The terminal belongs to the TUI.
func openLog(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { f.Close() }, nil
}

// --- Info ---

var infoTimeout time.Duration

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print module info and derived URLs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cc, err := resolveClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), infoTimeout)
		defer cancel()

		spec, _, err := fetch(ctx, cc, false)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		m := spec.Module
		if m.Name != "" {
			fmt.Fprintf(out, "Name:          %s\n", m.Name)
		}
		if m.Version != "" {
			fmt.Fprintf(out, "Version:       %s\n", m.Version)
		}
		if m.Summary != "" {
			fmt.Fprintf(out, "Summary:       %s\n", m.Summary)
		}
		fmt.Fprintf(out, "Service URI:   %s\n", m.ServiceURI)
		fmt.Fprintf(out, "Admin URI:     %s\n", m.AdminServiceURI)
		fmt.Fprintf(out, "Service URL:   %s\n", spec.ServiceURI)
		fmt.Fprintf(out, "Translations:  %s\n", spec.L10nURL)
		return nil
	},
}

func init() {
	infoCmd.Flags().DurationVar(&infoTimeout, "timeout", 10*time.Second, "give up after this long")
}

// --- Dump ---

var (
	dumpJSON    bool
	dumpQuery   string
	dumpTimeout time.Duration
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print one log snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cc, err := resolveClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), dumpTimeout)
		defer cancel()

		spec, recs, err := fetch(ctx, cc, true)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if dumpQuery != "" {
			result, err := queryRecords(recs, dumpQuery)
			if err != nil {
				return err
			}
			return writeJSON(out, result)
		}
		if dumpJSON {
			return writeJSON(out, recs)
		}
		fmt.Fprintln(out, renderSnapshot(spec.Locale, recs))
		return nil
	},
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "output as JSON")
	dumpCmd.Flags().StringVar(&dumpQuery, "query", "", "JMESPath expression applied to the records, e.g. \"[?status].file_name\"")
	dumpCmd.Flags().DurationVar(&dumpTimeout, "timeout", 10*time.Second, "give up after this long")
}

// queryRecords evaluates a JMESPath expression over the JSON form of recs.
func queryRecords(recs any, query string) (any, error) {
	data, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	result, err := jmespath.Search(query, doc)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	return result, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage adminlog.yaml",
}

var (
	configInitOutput string
	configInitForce  bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate an adminlog.yaml with defaults",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configInitOutput
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated %s\n", path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate an adminlog.yaml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}

		c, err := config.Load(path)
		if err != nil {
			return err
		}

		errs := config.Validate(c)
		if len(errs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", path)
			return nil
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d error(s)\n", path, len(errs))
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  • %s\n", e)
		}
		return fmt.Errorf("%s is invalid", path)
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitOutput, "output", defaultConfig, "output file path")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "adminlog %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	},
}

package cmd

import (
	"fmt"
	"os"
	"time"

	cfgpkg "github.com/KaramelBytes/eqviz-cli/internal/config"
	"github.com/KaramelBytes/eqviz-cli/internal/logging"
	"github.com/KaramelBytes/eqviz-cli/internal/report"
	"github.com/KaramelBytes/eqviz-cli/internal/upload"
	"github.com/KaramelBytes/eqviz-cli/internal/view"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags (override config if set)
	cfgFile            string
	debug              bool
	flagServerURL      string
	flagHTTPTimeoutSec int
	flagNoColor        bool
	flagPolicy         string

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "eqviz",
	Short: "eqviz: upload equipment CSV data and visualize the analysis",
	Long: `eqviz sends a CSV file of chemical equipment readings to the analysis service,
then shows the returned summary as a bar chart of equipment types and a data table.
The generated PDF report can be opened in the browser or downloaded.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.eqviz/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "analysis service base URL (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP timeout in seconds, 0 waits indefinitely (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&flagPolicy, "submit-policy", "", "overlapping submit handling: last-write-wins | serialized (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = defaultConfig()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("server") && flagServerURL != "" {
		cfg.ServerURL = flagServerURL
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec >= 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("no-color") {
		cfg.NoColor = flagNoColor
	}
	if f.Changed("submit-policy") && flagPolicy != "" {
		cfg.SubmitPolicy = flagPolicy
	}

	l, err := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogOutput,
		Debug:      debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to set up logging: %v\n", err)
		l = logging.NewDefault()
	}
	logger = l
}

func defaultConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		ServerURL:    upload.DefaultBaseURL,
		UploadPath:   upload.DefaultUploadPath,
		ReportPath:   report.DefaultReportPath,
		SubmitPolicy: upload.LastWriteWins.String(),
		ReportOutput: report.DefaultFileName,
		Width:        72,
		LogLevel:     "warn",
		LogFormat:    "console",
	}
}

func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		return defaultConfig()
	}
	return cfg
}

func newController() (*upload.Controller, error) {
	c := currentConfig()
	policy, err := upload.ParsePolicy(c.SubmitPolicy)
	if err != nil {
		return nil, err
	}
	client := upload.NewClient(c.ServerURL, c.HTTPTimeout(), logger).WithUploadPath(c.UploadPath)
	logger.Debug("upload client ready",
		zap.String("endpoint", client.Endpoint()),
		zap.Duration("timeout", c.HTTPTimeout()),
		zap.Stringer("policy", policy))
	return upload.NewController(client, upload.WithLogger(logger), upload.WithPolicy(policy)), nil
}

func reportURL() string {
	c := currentConfig()
	return report.URL(c.ServerURL, c.ReportPath)
}

func newLauncher() *report.Launcher {
	return report.NewLauncher(reportURL(), report.BrowserOpener{Command: currentConfig().Browser}, logger)
}

func newDownloader(timeout time.Duration) *report.Downloader {
	c := currentConfig()
	return report.NewDownloader(reportURL(), timeout, c.ReportUsername, c.ReportPassword, logger)
}

func newRenderer() *view.Renderer {
	c := currentConfig()
	return view.NewRenderer(c.Width, !c.NoColor)
}

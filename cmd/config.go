package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	cfgpkg "github.com/KaramelBytes/eqviz-cli/internal/config"
	"github.com/KaramelBytes/eqviz-cli/internal/upload"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set eqviz configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "server_url: %s\n", cfg.ServerURL)
		fmt.Fprintf(out, "upload_path: %s\n", cfg.UploadPath)
		fmt.Fprintf(out, "report_path: %s\n", cfg.ReportPath)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "submit_policy: %s\n", cfg.SubmitPolicy)
		if cfg.ReportUsername != "" {
			fmt.Fprintf(out, "report_username: %s\n", cfg.ReportUsername)
			fmt.Fprintf(out, "report_password: %s\n", mask(cfg.ReportPassword))
		}
		fmt.Fprintf(out, "report_output: %s\n", cfg.ReportOutput)
		if cfg.Browser != "" {
			fmt.Fprintf(out, "browser: %s\n", cfg.Browser)
		}
		fmt.Fprintf(out, "no_color: %t\n", cfg.NoColor)
		fmt.Fprintf(out, "width: %d\n", cfg.Width)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// reload from disk so flag overrides are not persisted
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		switch key {
		case "server_url":
			u, err := url.Parse(val)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("invalid server_url: %s (expected e.g. http://127.0.0.1:8000)", val)
			}
			c.ServerURL = val
		case "upload_path":
			c.UploadPath = val
		case "report_path":
			c.ReportPath = val
		case "http_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
			}
			c.HTTPTimeoutSec = i
		case "submit_policy":
			if _, err := upload.ParsePolicy(val); err != nil {
				return err
			}
			c.SubmitPolicy = val
		case "report_username":
			c.ReportUsername = val
		case "report_password":
			c.ReportPassword = val
		case "report_output":
			c.ReportOutput = val
		case "browser":
			c.Browser = val
		case "no_color":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for no_color: %w", err)
			}
			c.NoColor = b
		case "width":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for width: %v", val)
			}
			c.Width = i
		case "log_level":
			switch val {
			case "debug", "info", "warn", "error":
			default:
				return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
			}
			c.LogLevel = val
		case "log_format":
			if val != "console" && val != "json" {
				return fmt.Errorf("invalid log_format: %s (use console or json)", val)
			}
			c.LogFormat = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

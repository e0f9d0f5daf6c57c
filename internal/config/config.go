package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	ServerURL      string `mapstructure:"server_url" yaml:"server_url"`
	UploadPath     string `mapstructure:"upload_path" yaml:"upload_path"`
	ReportPath     string `mapstructure:"report_path" yaml:"report_path"`
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	SubmitPolicy   string `mapstructure:"submit_policy" yaml:"submit_policy"`

	// Report download (basic auth is optional)
	ReportUsername string `mapstructure:"report_username" yaml:"report_username"`
	ReportPassword string `mapstructure:"report_password" yaml:"report_password"`
	ReportOutput   string `mapstructure:"report_output" yaml:"report_output"`
	Browser        string `mapstructure:"browser" yaml:"browser"`

	// Terminal output and logging
	NoColor   bool   `mapstructure:"no_color" yaml:"no_color"`
	Width     int    `mapstructure:"width" yaml:"width"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogOutput string `mapstructure:"log_output" yaml:"log_output"`
}

// HTTPTimeout converts HTTPTimeoutSec; zero means no timeout.
func (c *Global) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".eqviz", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.eqviz/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := defaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// credentials may be stored here
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EQVIZ")
	v.AutomaticEnv()

	v.SetDefault("server_url", "http://127.0.0.1:8000")
	v.SetDefault("upload_path", "/api/upload/")
	v.SetDefault("report_path", "/api/report/")
	// no timeout unless configured
	v.SetDefault("http_timeout_sec", 0)
	v.SetDefault("submit_policy", "last-write-wins")
	v.SetDefault("report_username", "")
	v.SetDefault("report_password", "")
	v.SetDefault("report_output", "equipment_report.pdf")
	v.SetDefault("browser", "")
	v.SetDefault("no_color", false)
	v.SetDefault("width", 72)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_output", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".eqviz"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

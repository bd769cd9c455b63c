package config

import (
	"fmt"
	"nessql/logger"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type DefaultPaths struct {
	ConfigDir     string
	ConfigFile    string
	DataDir       string
	LogPathApp    string
	LogPathAccess string
	LogLevel      string
}

type Configuration struct {
	Data struct {
		Dir string `mapstructure:"dir" yaml:"dir"`
	} `mapstructure:"data" yaml:"data"`
	Server struct {
		Port          string `mapstructure:"port" yaml:"port"`
		LogPath       string `mapstructure:"log_path" yaml:"log_path"`
		AccessLogPath string `mapstructure:"access_log_path" yaml:"access_log_path"`
		StaticDir     string `mapstructure:"static_dir" yaml:"static_dir"`
		MaxUploadMB   int64  `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	} `mapstructure:"server" yaml:"server"`
	Query struct {
		Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	} `mapstructure:"query" yaml:"query"`
	Client struct {
		BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	} `mapstructure:"client" yaml:"client"`
	Logging struct {
		Level string `mapstructure:"level" yaml:"level"`
	} `mapstructure:"logging" yaml:"logging"`
}

var AppConfig Configuration

func expandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

func GetDefaultConfigPaths() DefaultPaths {
	var paths DefaultPaths
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not get user config dir: %v. Using current directory.\n", err)
		userConfigDir = "."
	}

	paths.ConfigDir = filepath.Join(userConfigDir, "nessql")
	logDir := filepath.Join(paths.ConfigDir, "logs")

	paths.ConfigFile = filepath.Join(paths.ConfigDir, "config.yaml")
	paths.DataDir = filepath.Join(paths.ConfigDir, "scans")
	paths.LogPathApp = filepath.Join(logDir, "app.log")
	paths.LogPathAccess = filepath.Join(logDir, "access.log")
	paths.LogLevel = "INFO"
	return paths
}

// Defaults returns the configuration used when no file or environment overrides exist.
func Defaults() Configuration {
	d := GetDefaultConfigPaths()
	var c Configuration
	c.Data.Dir = d.DataDir
	c.Server.Port = "5000"
	c.Server.LogPath = d.LogPathApp
	c.Server.AccessLogPath = d.LogPathAccess
	c.Server.StaticDir = ""
	c.Server.MaxUploadMB = 512
	c.Query.Timeout = 30 * time.Second
	c.Client.BaseURL = "http://localhost:5000/api"
	c.Logging.Level = d.LogLevel
	return c
}

func Init(cfgFile string, flagDataDir, flagAppLogPath, flagAccessLogPath, flagLogLevel string) error {
	v := viper.New()

	defaults := GetDefaultConfigPaths()
	def := Defaults()
	v.SetDefault("data.dir", def.Data.Dir)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.log_path", def.Server.LogPath)
	v.SetDefault("server.access_log_path", def.Server.AccessLogPath)
	v.SetDefault("server.static_dir", def.Server.StaticDir)
	v.SetDefault("server.max_upload_mb", def.Server.MaxUploadMB)
	v.SetDefault("query.timeout", def.Query.Timeout)
	v.SetDefault("client.base_url", def.Client.BaseURL)
	v.SetDefault("logging.level", def.Logging.Level)

	if cfgFile != "" {
		expandedCfgFile, err := expandTilde(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in config file path '%s': %v. Trying original path.\n", cfgFile, err)
			expandedCfgFile = cfgFile
		}
		v.SetConfigFile(expandedCfgFile)
		v.SetConfigType("yaml")
	} else {
		v.AddConfigPath(defaults.ConfigDir)
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("NESSQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configUsedMsg := "Using default/environment configuration."
	readErr := v.ReadInConfig()
	if readErr == nil {
		configUsedMsg = fmt.Sprintf("Using config file: %s", v.ConfigFileUsed())
	} else {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); ok {
			if cfgFile != "" {
				fmt.Fprintf(os.Stderr, "Warning: Config file specified by flag (%s) not found: %v\n", cfgFile, readErr)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", v.ConfigFileUsed(), readErr)
		}
	}

	if err := v.Unmarshal(&AppConfig); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Error unmarshalling configuration: %v\n", err)
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Flag overrides
	if flagDataDir != "" {
		AppConfig.Data.Dir = flagDataDir
	}
	if flagAppLogPath != "" {
		AppConfig.Server.LogPath = flagAppLogPath
	}
	if flagAccessLogPath != "" {
		AppConfig.Server.AccessLogPath = flagAccessLogPath
	}
	if flagLogLevel != "" {
		AppConfig.Logging.Level = strings.ToUpper(flagLogLevel)
	}

	for _, p := range []*string{&AppConfig.Data.Dir, &AppConfig.Server.LogPath, &AppConfig.Server.AccessLogPath, &AppConfig.Server.StaticDir} {
		expanded, err := expandTilde(*p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in '%s': %v.\n", *p, err)
			continue
		}
		*p = expanded
	}

	if err := logger.InitGlobalLoggers(AppConfig.Server.LogPath, AppConfig.Server.AccessLogPath, AppConfig.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to initialize global loggers with final config: %v\n", err)
		return fmt.Errorf("failed to initialize global loggers with final config: %w", err)
	}

	logger.Info(configUsedMsg)
	if readErr != nil && cfgFile != "" {
		logger.Error("Error occurred reading specified config file '%s': %v", cfgFile, readErr)
	}
	if AppConfig.Query.Timeout <= 0 {
		logger.Warn("Query timeout disabled; ad-hoc queries may run indefinitely.")
	}
	logger.Debug("Final AppConfig Initialized: %+v", AppConfig)
	return nil
}

// WriteDefaultConfig writes Defaults() as YAML to path. An existing file is
// only replaced when overwrite is set.
func WriteDefaultConfig(path string, overwrite bool) error {
	expanded, err := expandTilde(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil && !overwrite {
		return fmt.Errorf("config file %s already exists", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	return os.WriteFile(expanded, data, 0640)
}

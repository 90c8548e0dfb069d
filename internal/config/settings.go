// Package config loads the service settings from an optional YAML file and
// YTDL_WEB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ytget/yt-downloader-web/internal/platform"
)

// Environment keys
const (
	EnvConfigPath = "YTDL_WEB_CONFIG"
	EnvPrefix     = "YTDL_WEB_"
)

// DefaultConfigFile is read from the working directory when present
const DefaultConfigFile = "yt-downloader.yaml"

// Default values
const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 8999
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultResolution        = "1080"
	DefaultMergeOutputFormat = "mp4"
	DefaultEmitInterval      = 200 * time.Millisecond
	DefaultParseTimeout      = 60 * time.Second
	DefaultLogLevel          = "info"
)

// Settings is the complete service configuration
type Settings struct {
	Server   ServerSettings   `yaml:"server"`
	Download DownloadSettings `yaml:"download"`
	Log      LogSettings      `yaml:"log"`
}

// ServerSettings configures the HTTP listener
type ServerSettings struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// DownloadSettings configures the download pipeline
type DownloadSettings struct {
	Directory         string        `yaml:"directory" env:"DOWNLOAD_DIR"`
	DefaultResolution string        `yaml:"default_resolution" env:"RESOLUTION"`
	MergeOutputFormat string        `yaml:"merge_output_format" env:"MERGE_FORMAT"`
	YTDLPPath         string        `yaml:"ytdlp_path" env:"YTDLP_PATH"`
	EmitInterval      time.Duration `yaml:"emit_interval" env:"EMIT_INTERVAL"`
	ParseTimeout      time.Duration `yaml:"parse_timeout" env:"PARSE_TIMEOUT"`
}

// LogSettings configures the root logger
type LogSettings struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
	JSON  bool   `yaml:"json" env:"LOG_JSON"`
}

// Address returns host:port for the listener
func (s ServerSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultSettings returns the built-in configuration. The download directory
// is ~/Downloads, or the home directory when that does not exist.
func DefaultSettings() *Settings {
	dir, err := platform.GetHomeDownloadsDir()
	if err != nil {
		dir = os.TempDir()
	}
	return &Settings{
		Server: ServerSettings{
			Host:            DefaultHost,
			Port:            DefaultPort,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Download: DownloadSettings{
			Directory:         dir,
			DefaultResolution: DefaultResolution,
			MergeOutputFormat: DefaultMergeOutputFormat,
			EmitInterval:      DefaultEmitInterval,
			ParseTimeout:      DefaultParseTimeout,
		},
		Log: LogSettings{
			Level: DefaultLogLevel,
		},
	}
}

// Load builds the settings: defaults, then the YAML file, then the
// environment. path may be empty, in which case YTDL_WEB_CONFIG and
// DefaultConfigFile are tried.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" && fileExists(DefaultConfigFile) {
		path = DefaultConfigFile
	}

	if path != "" {
		if err := s.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(s).Elem()); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, s)
}

// Validate checks the settings for values the service cannot run with
func (s *Settings) Validate() error {
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if strings.TrimSpace(s.Server.Host) == "" {
		return &ValidationError{Field: "server.host", Message: "must not be empty"}
	}
	if s.Server.ShutdownTimeout <= 0 {
		return &ValidationError{Field: "server.shutdown_timeout", Message: "must be positive"}
	}
	if strings.TrimSpace(s.Download.Directory) == "" {
		return &ValidationError{Field: "download.directory", Message: "must not be empty"}
	}
	if _, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(s.Download.DefaultResolution), "p")); err != nil {
		return &ValidationError{Field: "download.default_resolution", Message: "must be a number such as 720 or 1080p"}
	}
	if s.Download.MergeOutputFormat == "" {
		return &ValidationError{Field: "download.merge_output_format", Message: "must not be empty"}
	}
	if s.Download.EmitInterval < DefaultEmitInterval {
		return &ValidationError{Field: "download.emit_interval", Message: "must be at least " + DefaultEmitInterval.String()}
	}
	if s.Download.ParseTimeout < 0 {
		return &ValidationError{Field: "download.parse_timeout", Message: "must not be negative"}
	}
	switch strings.ToLower(s.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "off":
	default:
		return &ValidationError{Field: "log.level", Message: "must be one of trace, debug, info, warn, error, off"}
	}
	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error in field '" + e.Field + "': " + e.Message
}

// loadStructFromEnv overrides fields tagged with env from EnvPrefix+tag
func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		// Handle nested structs recursively
		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue, ok := os.LookupEnv(EnvPrefix + envTag)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, envTag, err)
		}
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
			return nil
		}
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return errors.New("only string lists are supported")
		}
		values := strings.Split(value, ",")
		for i, v := range values {
			values[i] = strings.TrimSpace(v)
		}
		field.Set(reflect.ValueOf(values))
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

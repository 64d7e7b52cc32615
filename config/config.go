package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/synodriver/davgate/accounts"
	"github.com/synodriver/davgate/auth"
	"github.com/synodriver/davgate/hidefile"
	davgatehttp "github.com/synodriver/davgate/http"
	"github.com/synodriver/davgate/response"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for davgate.
type Config struct {
	Server      ServerConfig               `mapstructure:"server"`
	Auth        AuthConfig                 `mapstructure:"auth"`
	Compression response.CompressionConfig `mapstructure:"compression"`
	HideFile    hidefile.Config            `mapstructure:"hide_file_in_dir"`
	CORS        davgatehttp.CORSConfig     `mapstructure:"cors"`
	Log         LogConfig                  `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Root          string `mapstructure:"root" validate:"required"`
	PublicAccess  bool   `mapstructure:"public_access"`
	EnableListing bool   `mapstructure:"enable_listing"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Realm    string            `mapstructure:"realm" validate:"required"`
	Accounts accounts.Config   `mapstructure:"accounts"`
	Digest   auth.DigestConfig `mapstructure:"digest"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// AuthenticatorConfig assembles the auth package configuration from the
// loaded values.
func (c *Config) AuthenticatorConfig() auth.Config {
	return auth.Config{
		Realm:  c.Auth.Realm,
		Digest: c.Auth.Digest,
	}
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"root":  "server.root",
	"port":  "server.port",
	"realm": "auth.realm",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.root", "./data")
	v.SetDefault("server.public_access", false)
	v.SetDefault("server.enable_listing", true)

	v.SetDefault("auth.realm", "davgate")
	v.SetDefault("auth.digest.enable", false)
	// neon-based clients (cadaver among them) refuse Basic over plain HTTP.
	v.SetDefault("auth.digest.enable_rule", "neon/")
	v.SetDefault("auth.digest.disable_rule", "")

	v.SetDefault("compression.enable_gzip", true)
	v.SetDefault("compression.enable_brotli", true)
	v.SetDefault("compression.level", "default")
	v.SetDefault("compression.min_length", 1000)

	v.SetDefault("hide_file_in_dir.enable", true)
	v.SetDefault("hide_file_in_dir.enable_default_rules", true)

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("DAVGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

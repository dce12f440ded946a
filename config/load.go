package config

import (
	"path/filepath"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

const delim = "."

// NewFlagSet declares every flag Load understands. Flag names match the
// koanf keys so posflag can overlay them.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringP("config", "c", "", "path to a JSON or YAML config file")

	fs.String("server.addr", "", "HTTP listen address")
	fs.Bool("server.debug", false, "print request payloads")

	fs.String("database.driver", "", "database driver: sqlite or postgres")
	fs.String("database.dsn", "", "database DSN")
	fs.Bool("database.auto_migrate", true, "apply migrations on start")

	fs.String("token.secret", "", "base64 encoded token signing secret")
	fs.String("token.algorithm", "", "HS256, HS384 or HS512")
	fs.Duration("token.ttl", 0, "token lifetime")

	fs.Duration("accounts.grace_period", 0, "how long pending accounts survive after key expiry")
	fs.String("accounts.reaper_schedule", "", "daily reaper time, HH:MM")
	fs.Bool("accounts.reaper_enabled", true, "run the stale account reaper")

	fs.Bool("mail.enabled", false, "send email over SMTP instead of logging it")
	fs.String("mail.host", "", "SMTP host")
	fs.Int("mail.port", 0, "SMTP port")

	fs.String("logging.level", "", "debug, info, warn or error")
	fs.String("logging.format", "", "console or json")

	return fs
}

// Load parses args and builds the effective configuration.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("accountsd")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return LoadFlags(fs)
}

// LoadFlags builds the configuration from an already parsed flag set.
func LoadFlags(fs *flag.FlagSet) (*Config, error) {
	k := koanf.New(delim)

	if err := k.Load(confmap.Provider(Defaults(), delim), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load config defaults")
	}

	if path, _ := fs.GetString("config"); path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to read config file "+path)
		}
	}

	if err := k.Load(posflag.Provider(fs, delim, k), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to load config flags")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration")
	}

	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Parser(), nil
	case ".yml", ".yaml":
		return yaml.Parser(), nil
	default:
		return nil, goerrors.New("unsupported config file extension: "+path, goerrors.CategoryValidation)
	}
}

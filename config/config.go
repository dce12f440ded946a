// Package config loads the accountsd settings from built-in defaults, an
// optional JSON or YAML file and command line flags, in that order.
package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-accounts"
)

// Config is the root configuration.
type Config struct {
	Server   Server   `koanf:"server" json:"server"`
	Database Database `koanf:"database" json:"database"`
	Token    Token    `koanf:"token" json:"token"`
	Accounts Accounts `koanf:"accounts" json:"accounts"`
	Hasher   Hasher   `koanf:"hasher" json:"hasher"`
	Mail     Mail     `koanf:"mail" json:"mail"`
	Logging  Logging  `koanf:"logging" json:"logging"`
}

type Server struct {
	Addr            string        `koanf:"addr" json:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
	Debug           bool          `koanf:"debug" json:"debug"`
}

type Database struct {
	Driver      string `koanf:"driver" json:"driver"`
	DSN         string `koanf:"dsn" json:"dsn"`
	AutoMigrate bool   `koanf:"auto_migrate" json:"auto_migrate"`
}

// Token configures the bearer token codec. Secret is base64 encoded.
type Token struct {
	Secret    string        `koanf:"secret" json:"-"`
	Algorithm string        `koanf:"algorithm" json:"algorithm"`
	TTL       time.Duration `koanf:"ttl" json:"ttl"`
	Issuer    string        `koanf:"issuer" json:"issuer"`
}

type Accounts struct {
	ActivationKeyTTL time.Duration `koanf:"activation_key_ttl" json:"activation_key_ttl"`
	ResetKeyTTL      time.Duration `koanf:"reset_key_ttl" json:"reset_key_ttl"`
	GracePeriod      time.Duration `koanf:"grace_period" json:"grace_period"`
	ReaperEnabled    bool          `koanf:"reaper_enabled" json:"reaper_enabled"`
	ReaperSchedule   string        `koanf:"reaper_schedule" json:"reaper_schedule"`
	DefaultRole      string        `koanf:"default_role" json:"default_role"`
	HashidIDs        bool          `koanf:"hashid_ids" json:"hashid_ids"`
}

type Hasher struct {
	Algorithm  string `koanf:"algorithm" json:"algorithm"`
	BcryptCost int    `koanf:"bcrypt_cost" json:"bcrypt_cost"`
}

// Mail configures outgoing email. When disabled messages are only logged.
type Mail struct {
	Enabled  bool   `koanf:"enabled" json:"enabled"`
	Host     string `koanf:"host" json:"host"`
	Port     int    `koanf:"port" json:"port"`
	Username string `koanf:"username" json:"username"`
	Password string `koanf:"password" json:"-"`
	From     string `koanf:"from" json:"from"`
	AppName  string `koanf:"app_name" json:"app_name"`
}

type Logging struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}

// Defaults returns the built-in values as a flat koanf map.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":                 ":8080",
		"server.read_timeout":         "10s",
		"server.write_timeout":        "10s",
		"server.shutdown_timeout":     "10s",
		"server.debug":                false,
		"database.driver":             "sqlite",
		"database.dsn":                "file:accounts.db?cache=shared",
		"database.auto_migrate":       true,
		"token.secret":                "",
		"token.algorithm":             "HS512",
		"token.ttl":                   accounts.DefaultTokenTTL.String(),
		"token.issuer":                "",
		"accounts.activation_key_ttl": accounts.DefaultActivationKeyTTL.String(),
		"accounts.reset_key_ttl":      accounts.DefaultResetKeyTTL.String(),
		"accounts.grace_period":       accounts.DefaultGracePeriod.String(),
		"accounts.reaper_enabled":     true,
		"accounts.reaper_schedule":    accounts.DefaultSchedule.String(),
		"accounts.default_role":       string(accounts.DefaultRole),
		"accounts.hashid_ids":         false,
		"hasher.algorithm":            "bcrypt",
		"hasher.bcrypt_cost":          12,
		"mail.enabled":                false,
		"mail.host":                   "localhost",
		"mail.port":                   587,
		"mail.username":               "",
		"mail.password":               "",
		"mail.from":                   "no-reply@example.com",
		"mail.app_name":               "Accounts",
		"logging.level":               "info",
		"logging.format":              "console",
	}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.Token),
		validation.Field(&c.Accounts),
		validation.Field(&c.Hasher),
		validation.Field(&c.Mail),
		validation.Field(&c.Logging),
	)
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

func (d Database) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&d.DSN, validation.Required),
	)
}

func (t Token) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Secret, validation.Required, is.Base64),
		validation.Field(&t.Algorithm, validation.Required, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&t.TTL, validation.Required, validation.Min(time.Second)),
	)
}

func (a Accounts) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ActivationKeyTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&a.ResetKeyTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&a.GracePeriod, validation.Required, validation.Min(time.Second)),
		validation.Field(&a.ReaperSchedule, validation.Required, validation.By(validSchedule)),
		validation.Field(&a.DefaultRole, validation.Required, validation.By(validRole)),
	)
}

func (h Hasher) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Algorithm, validation.Required, validation.In("bcrypt", "argon2id")),
		validation.Field(&h.BcryptCost, validation.Min(4), validation.Max(31)),
	)
}

// Validate only requires an SMTP endpoint when delivery is enabled.
func (m Mail) Validate() error {
	var host, port []validation.Rule
	if m.Enabled {
		host = []validation.Rule{validation.Required}
		port = []validation.Rule{validation.Required, validation.Min(1), validation.Max(65535)}
	}

	return validation.ValidateStruct(&m,
		validation.Field(&m.Host, host...),
		validation.Field(&m.Port, port...),
		validation.Field(&m.From, validation.Required, is.Email),
	)
}

func (l Logging) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("console", "json")),
	)
}

func validSchedule(value any) error {
	s, _ := value.(string)
	_, err := accounts.ParseDailySchedule(s, time.Local)
	return err
}

func validRole(value any) error {
	s, _ := value.(string)
	_, err := accounts.ParseRole(s)
	return err
}

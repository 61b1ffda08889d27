package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidVoiceNames lists the prebuilt Gemini Live voices known to this build.
// Used by [Validate] to warn about unrecognised voice names.
var ValidVoiceNames = []string{"Puck", "Charon", "Kore", "Fenrir", "Aoede"}

// Load reads the YAML configuration file at path, applies environment
// fallbacks and defaults, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty credential fields from the environment.
func applyEnv(cfg *Config) {
	fromEnv(&cfg.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	fromEnv(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	fromEnv(&cfg.Twilio.APIKeySID, "TWILIO_API_KEY_SID")
	fromEnv(&cfg.Twilio.APIKeySecret, "TWILIO_API_KEY_SECRET")
	fromEnv(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
}

func fromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

// applyDefaults fills unset fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Twilio.TokenTTL <= 0 {
		cfg.Twilio.TokenTTL = time.Hour
	}
	if len(cfg.Gemini.Modalities) == 0 {
		cfg.Gemini.Modalities = []string{"audio"}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.PublicHost == "" {
		errs = append(errs, errors.New("server.public_host is required to bridge calls to the media stream"))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.Gemini.APIKey == "" {
		errs = append(errs, errors.New("gemini.api_key is required (or set GEMINI_API_KEY)"))
	}
	if v := cfg.Gemini.Voice; v != "" && !slices.Contains(ValidVoiceNames, v) {
		slog.Warn("unknown voice name — may be a typo or a newly released voice",
			"voice", v,
			"known", ValidVoiceNames,
		)
	}

	if cfg.Twilio.AccountSID == "" {
		slog.Warn("twilio.account_sid is empty; client token issuance will be unavailable")
	}
	if (cfg.Twilio.APIKeySID == "") != (cfg.Twilio.APIKeySecret == "") {
		errs = append(errs, errors.New("twilio.api_key_sid and twilio.api_key_secret must be set together"))
	}

	return errors.Join(errs...)
}

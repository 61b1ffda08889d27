// Package config provides the configuration schema, loader, and file watcher
// for the AiVoice relay server.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l onto the slog level it selects. Unknown values map to
// info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure for the relay server.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig `yaml:"server"`
	Twilio TwilioConfig `yaml:"twilio"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// PublicHost is the externally reachable host[:port] Twilio uses to
	// open the media WebSocket (e.g., "voice.example.com"). Required to
	// render call-answer instructions.
	PublicHost string `yaml:"public_host"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// ShutdownTimeout bounds graceful shutdown. Zero selects 10 seconds.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TLS configures TLS for the server. When nil, the server runs plain
	// HTTP (typically behind a terminating proxy).
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// TwilioConfig holds credentials and call-handling settings for the
// telephony side. Credentials fall back to the TWILIO_ACCOUNT_SID,
// TWILIO_AUTH_TOKEN, TWILIO_API_KEY_SID and TWILIO_API_KEY_SECRET
// environment variables when left empty.
type TwilioConfig struct {
	// AccountSID identifies the Twilio account.
	AccountSID string `yaml:"account_sid"`

	// AuthToken authenticates REST requests and webhook signatures.
	AuthToken string `yaml:"auth_token"`

	// APIKeySID and APIKeySecret sign client access tokens.
	APIKeySID    string `yaml:"api_key_sid"`
	APIKeySecret string `yaml:"api_key_secret"`

	// AppSID is the TwiML application granted to outgoing client calls.
	AppSID string `yaml:"app_sid"`

	// Greeting is spoken to the caller before the media stream is bridged.
	// Empty skips the greeting.
	Greeting string `yaml:"greeting"`

	// TokenTTL bounds client access token validity. Zero selects one hour.
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// GeminiConfig holds the generative-voice session settings. The API key
// falls back to the GEMINI_API_KEY environment variable when left empty.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini Live API.
	APIKey string `yaml:"api_key"`

	// Model selects the live model. Empty selects the connector default.
	Model string `yaml:"model"`

	// BaseURL overrides the WebSocket endpoint, primarily for tests.
	BaseURL string `yaml:"base_url"`

	// Voice selects the prebuilt voice for synthesised speech.
	Voice string `yaml:"voice"`

	// SystemPreamble is the system prompt applied to every call.
	SystemPreamble string `yaml:"system_preamble"`

	// Modalities lists desired response modalities. Empty selects audio.
	Modalities []string `yaml:"modalities"`
}

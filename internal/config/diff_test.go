package config_test

import (
	"testing"

	"github.com/uday-incquet/AiVoice/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: ":8080",
			PublicHost: "voice.example.com",
			LogLevel:   config.LogInfo,
		},
		Twilio: config.TwilioConfig{Greeting: "Hello."},
		Gemini: config.GeminiConfig{
			APIKey:     "k",
			Voice:      "Puck",
			Modalities: []string{"audio"},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	if d := config.Diff(old, new); !d.Empty() {
		t.Errorf("diff of identical configs = %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v", d)
	}
	if d.SessionChanged || d.GreetingChanged {
		t.Errorf("unrelated changes flagged: %+v", d)
	}
}

func TestDiff_SessionSettings(t *testing.T) {
	for name, mutate := range map[string]func(*config.Config){
		"voice":      func(c *config.Config) { c.Gemini.Voice = "Kore" },
		"model":      func(c *config.Config) { c.Gemini.Model = "gemini-next" },
		"preamble":   func(c *config.Config) { c.Gemini.SystemPreamble = "Be brief." },
		"modalities": func(c *config.Config) { c.Gemini.Modalities = []string{"audio", "text"} },
	} {
		t.Run(name, func(t *testing.T) {
			old, new := baseConfig(), baseConfig()
			mutate(new)
			if d := config.Diff(old, new); !d.SessionChanged {
				t.Errorf("session change %q not detected", name)
			}
		})
	}
}

func TestDiff_Greeting(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Twilio.Greeting = "Welcome."
	if d := config.Diff(old, new); !d.GreetingChanged {
		t.Errorf("greeting change not detected: %+v", d)
	}
}

package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; address, TLS and
// credential changes require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SessionChanged is true when the Gemini session settings (model,
	// voice, preamble or modalities) changed. New calls pick up the new
	// settings; established calls keep the old ones.
	SessionChanged bool

	// GreetingChanged is true when the call greeting changed.
	GreetingChanged bool
}

// Empty reports whether the diff carries no reloadable changes.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.SessionChanged && !d.GreetingChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Gemini.Model != new.Gemini.Model ||
		old.Gemini.Voice != new.Gemini.Voice ||
		old.Gemini.SystemPreamble != new.Gemini.SystemPreamble ||
		!slices.Equal(old.Gemini.Modalities, new.Gemini.Modalities) {
		d.SessionChanged = true
	}

	if old.Twilio.Greeting != new.Twilio.Greeting {
		d.GreetingChanged = true
	}

	return d
}

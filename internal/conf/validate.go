// conf/validate.go settings validation
package conf

import (
	"fmt"
	"strconv"
)

// ValidateSettings checks that loaded settings are usable and returns the
// first problem found.
func ValidateSettings(settings *Settings) error {
	if settings.WebServer.Port == "" {
		return fmt.Errorf("webserver.port must not be empty")
	}
	if port, err := strconv.Atoi(settings.WebServer.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port must be a number between 1 and 65535, got %q", settings.WebServer.Port)
	}

	if settings.Audio.UploadPath == "" {
		return fmt.Errorf("audio.uploadpath must not be empty")
	}
	if settings.Audio.MaxClipDurationSeconds <= 0 {
		return fmt.Errorf("audio.maxclipdurationseconds must be positive, got %d", settings.Audio.MaxClipDurationSeconds)
	}

	if settings.Models.CachePath == "" {
		return fmt.Errorf("models.cachepath must not be empty")
	}
	if settings.Models.Threads < 0 {
		return fmt.Errorf("models.threads must not be negative, got %d", settings.Models.Threads)
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry.enabled is true but sentry.dsn is empty")
	}

	return nil
}

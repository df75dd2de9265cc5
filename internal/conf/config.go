// config.go: settings struct and functions to load and access the settings.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig contains settings for a rotating log file.
type LogConfig struct {
	Enabled  bool   // true to enable log file output
	Path     string // path to the log file
	MaxSize  int    // maximum log file size in megabytes before rotation
	MaxAge   int    // maximum age of rotated log files in days
	Backups  int    // number of rotated log files to keep
	Compress bool   // true to gzip rotated log files
}

// WebServerSettings contains settings for the HTTP server.
type WebServerSettings struct {
	Host  string // server listen address
	Port  string // server listen port
	Debug bool   // true to enable web server debug mode
}

// AudioSettings contains settings for upload handling and decoding.
type AudioSettings struct {
	UploadPath             string // scratch directory for uploaded files
	MaxClipDurationSeconds int    // uploads longer than this are clipped
	FfmpegPath             string // path to ffmpeg binary for mp3/m4a decoding
	FfprobePath            string // path to ffprobe binary
}

// ModelConfig contains settings for a single prediction family backend.
type ModelConfig struct {
	Enabled     bool   // true to load this model at startup
	ArtifactURL string // remote zip archive with model artifacts
	ModelPath   string // optional local override for the model file
}

// ModelsSettings contains settings shared by all model backends.
type ModelsSettings struct {
	CachePath   string      // root directory for downloaded model artifacts
	Threads     int         // tflite interpreter threads, 0 for all CPUs
	UseXNNPACK  bool        // true to use XNNPACK delegate if available
	AgeGender   ModelConfig // age and gender prediction backend
	Nationality ModelConfig // spoken language prediction backend
	Emotion     ModelConfig // emotion prediction backend
}

// SentrySettings contains settings for optional error telemetry.
type SentrySettings struct {
	Enabled bool   // true to report model load failures to Sentry
	DSN     string // Sentry DSN, empty disables reporting
}

// Settings contains all application settings.
type Settings struct {
	Debug bool // true to enable debug output

	Main struct {
		Name string    // name of this node
		Log  LogConfig // application log file settings
	}

	WebServer WebServerSettings
	Audio     AudioSettings
	Models    ModelsSettings
	Sentry    SentrySettings

	Version   string `yaml:"-"` // build version, runtime value
	BuildDate string `yaml:"-"` // build date, runtime value
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Environment variables override file values, e.g. SPEECH_WEBSERVER_PORT.
	viper.SetEnvPrefix("speech")
	viper.AutomaticEnv()

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	var paths []string

	paths = append(paths, ".")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "speech-analysis"))
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no config paths available")
	}
	return paths, nil
}

// Setting returns the current settings instance.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Speech-Analysis-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/speech-analysis.log")
	viper.SetDefault("main.log.maxsize", 100)
	viper.SetDefault("main.log.maxage", 28)
	viper.SetDefault("main.log.backups", 3)
	viper.SetDefault("main.log.compress", false)

	viper.SetDefault("webserver.host", "0.0.0.0")
	viper.SetDefault("webserver.port", "8000")
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("audio.uploadpath", "uploads")
	viper.SetDefault("audio.maxclipdurationseconds", DefaultMaxClipDurationSeconds)
	viper.SetDefault("audio.ffmpegpath", "ffmpeg")
	viper.SetDefault("audio.ffprobepath", "ffprobe")

	viper.SetDefault("models.cachepath", "cache")
	viper.SetDefault("models.threads", 0)
	viper.SetDefault("models.usexnnpack", true)

	viper.SetDefault("models.agegender.enabled", true)
	viper.SetDefault("models.agegender.artifacturl",
		"https://zenodo.org/record/7761387/files/w2v2-L-robust-24-age-gender.zip")

	viper.SetDefault("models.nationality.enabled", true)
	viper.SetDefault("models.nationality.artifacturl",
		"https://huggingface.co/facebook/mms-lid-256/resolve/main/mms-lid-256-tflite.zip")

	viper.SetDefault("models.emotion.enabled", true)
	viper.SetDefault("models.emotion.artifacturl",
		"https://huggingface.co/Dpngtm/wav2vec2-emotion-recognition/resolve/main/wav2vec2-emotion-tflite.zip")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}

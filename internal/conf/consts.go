// conf/consts.go hard coded constants
package conf

const (
	SampleRate  = 16000 // Sample rate of the canonical signal fed to the models
	BitDepth    = 16    // Bit depth of PCM decoded from uploads
	NumChannels = 1     // Number of channels of the canonical signal

	// DefaultMaxClipDurationSeconds caps the duration of an uploaded clip;
	// longer uploads are truncated to their first N seconds.
	DefaultMaxClipDurationSeconds = 120
)

// AllowedFileTypes lists the upload extensions the service accepts,
// without the leading dot.
var AllowedFileTypes = []string{"wav", "mp3", "flac", "m4a"}

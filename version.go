package overshoot

// Version is the SDK release version, reported in the User-Agent header.
const Version = "0.2.0"

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.overshoot.ai/api/v0.2"

// Defaults applied by Streams.Create when the corresponding option is unset.
const (
	DefaultBackend = BackendOvershoot
	DefaultModel   = "Qwen/Qwen3-VL-30B-A3B-Instruct"

	defaultTimeout = 30 // seconds

	defaultTargetFPS         = 10
	defaultSamplingRatio     = 0.5
	defaultFPS               = 30
	defaultClipLengthSeconds = 1.0
	defaultDelaySeconds      = 1.0
	defaultIntervalSeconds   = 2.0
)

package feature

import "os"

// Feature is a flag toggled through an environment variable
type Feature struct {
	EnvVariable    string
	defaultEnabled bool
}

// EnforceIPRateLimits makes the source IP rate limiter reject connections.
// Setting it to "false" only counts and logs them.
var EnforceIPRateLimits = Feature{
	EnvVariable:    "FF_ENFORCE_IP_RATE_LIMITS",
	defaultEnabled: true,
}

// Enabled reads the environment variable responsible for the feature flag
// if FF is disabled by default, the environment variable needs to be "true" to explicitly enable it
// if FF is enabled by default, variable needs to be "false" to explicitly disable it
func (f Feature) Enabled() bool {
	env := os.Getenv(f.EnvVariable)

	if f.defaultEnabled {
		return env != "false"
	}

	return env == "true"
}

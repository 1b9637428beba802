// Package config provides YAML configuration loading and validation for the
// overshoot-watch command. It covers API credentials, the video source and
// stream parameters, logging, and the optional metrics endpoint.
package config

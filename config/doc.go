// Package config loads depthfeed settings from YAML with environment
// overrides.
package config

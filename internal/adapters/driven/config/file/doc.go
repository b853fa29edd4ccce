// Package file provides file-based configuration for Lectern: typed TOML
// settings with environment overrides for API keys, and user-editable
// prompt templates with embedded defaults.
package file

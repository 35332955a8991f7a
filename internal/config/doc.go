// Package config loads and validates the bot's YAML configuration, including
// environment variable expansion and duration parsing for the messaging
// tuning knobs.
package config

// Package config loads service configuration with viper.
//
// A binary declares its config struct, embeds ServiceConfig and calls
// LoadConfig with its service name. The loader reads cmd/<name>/config.yml
// (or ./config.yml), loads an optional .env file and lets environment
// variables override any key.
package config

// Package config provides functionality for managing configuration options
// for the client using command-line flags, a JSON config file, a .env file
// and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the client.
type Options struct {
	// APIURL is the base URL of the remote flashcard API.
	APIURL string `json:"api_url"`

	// TokenFile is where the authentication token is persisted.
	TokenFile string `json:"token_file"`

	// TokenKey, when set, seals the token file with a key derived from it.
	TokenKey string `json:"token_key"`

	// CAFile is an optional PEM bundle trusted for the API's TLS certificate.
	CAFile string `json:"ca_file"`

	// CallbackAddr is the loopback address serving the auth-callback route.
	CallbackAddr string `json:"callback_addr"`

	// LogFile is the rotated log file path; empty logs to the console.
	LogFile string `json:"log_file"`

	// LogLevel is the minimum log level.
	LogLevel string `json:"log_level"`

	// Timeout bounds every API request except PDF generation. The config
	// file sets it as a duration string under "timeout".
	Timeout time.Duration `json:"-"`

	// GenerateTimeout bounds PDF upload and generation requests. The config
	// file sets it under "generate_timeout".
	GenerateTimeout time.Duration `json:"-"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// ShowVersion prints build metadata and exits.
	ShowVersion bool `json:"-"`
}

// Default values.
const (
	DefaultAPIURL          = "http://localhost:3000"
	DefaultTokenFile       = ".gophcards_token.json"
	DefaultCallbackAddr    = "127.0.0.1:8765"
	DefaultLogFile         = "gophcards.log"
	DefaultLogLevel        = "info"
	DefaultTimeout         = 30 * time.Second
	DefaultGenerateTimeout = 2 * time.Minute
)

// bind registers the client flags on fs.
func bind(fs *flag.FlagSet, o *Options) {
	fs.StringVar(&o.APIURL, "url", DefaultAPIURL, "remote API base URL")
	fs.StringVar(&o.TokenFile, "token-file", DefaultTokenFile, "path to the persisted token")
	fs.StringVar(&o.TokenKey, "token-key", "", "passphrase sealing the token file")
	fs.StringVar(&o.CAFile, "ca", "", "path to a CA bundle for the API certificate")
	fs.StringVar(&o.CallbackAddr, "callback", DefaultCallbackAddr, "loopback address for the auth callback")
	fs.StringVar(&o.LogFile, "log-file", DefaultLogFile, "log file path (empty logs to console)")
	fs.StringVar(&o.LogLevel, "log-level", DefaultLogLevel, "log level")
	fs.DurationVar(&o.Timeout, "timeout", DefaultTimeout, "API request timeout")
	fs.DurationVar(&o.GenerateTimeout, "generate-timeout", DefaultGenerateTimeout, "PDF generation request timeout")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	fs.BoolVar(&o.ShowVersion, "version", false, "show build version and date")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() (*Options, error) {
	return parse(flag.CommandLine, os.Args[1:])
}

// parse applies, in increasing precedence: flag defaults and values, the
// JSON config file, the .env file and the process environment.
func parse(fs *flag.FlagSet, args []string) (*Options, error) {
	o := &Options{}
	bind(fs, o)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			data, err := os.ReadFile(o.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, o); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
			if err := o.fileDurations(data); err != nil {
				return nil, err
			}
		}
	}

	overrideString(&o.APIURL, "GOPHCARDS_API_URL")
	overrideString(&o.TokenFile, "GOPHCARDS_TOKEN_FILE")
	overrideString(&o.TokenKey, "GOPHCARDS_TOKEN_KEY")
	overrideString(&o.CAFile, "GOPHCARDS_CA_FILE")
	overrideString(&o.CallbackAddr, "GOPHCARDS_CALLBACK_ADDR")
	overrideString(&o.LogFile, "GOPHCARDS_LOG_FILE")
	overrideString(&o.LogLevel, "GOPHCARDS_LOG_LEVEL")
	if err := overrideDuration(&o.Timeout, "GOPHCARDS_TIMEOUT"); err != nil {
		return nil, err
	}
	if err := overrideDuration(&o.GenerateTimeout, "GOPHCARDS_GENERATE_TIMEOUT"); err != nil {
		return nil, err
	}

	o.normalize()
	return o, nil
}

// normalize restores defaults a config file may have blanked.
func (o *Options) normalize() {
	if o.APIURL == "" {
		o.APIURL = DefaultAPIURL
	}
	if o.TokenFile == "" {
		o.TokenFile = DefaultTokenFile
	}
	if o.CallbackAddr == "" {
		o.CallbackAddr = DefaultCallbackAddr
	}
	if o.LogLevel == "" {
		o.LogLevel = DefaultLogLevel
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.GenerateTimeout <= 0 {
		o.GenerateTimeout = DefaultGenerateTimeout
	}
}

// fileDurations reads the timeouts from config file data.
func (o *Options) fileDurations(data []byte) error {
	var raw struct {
		Timeout         string `json:"timeout"`
		GenerateTimeout string `json:"generate_timeout"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	for _, d := range []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"timeout", raw.Timeout, &o.Timeout},
		{"generate_timeout", raw.GenerateTimeout, &o.GenerateTimeout},
	} {
		if d.val == "" {
			continue
		}
		v, err := time.ParseDuration(d.val)
		if err != nil {
			return fmt.Errorf("invalid %s in config file: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

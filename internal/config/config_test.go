package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	return flag.NewFlagSet("test", flag.ContinueOnError)
}

func TestParse_Defaults(t *testing.T) {
	o, err := parse(newFlagSet(), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, o.APIURL)
	assert.Equal(t, DefaultTokenFile, o.TokenFile)
	assert.Equal(t, DefaultCallbackAddr, o.CallbackAddr)
	assert.Equal(t, DefaultTimeout, o.Timeout)
	assert.Equal(t, DefaultGenerateTimeout, o.GenerateTimeout)
}

func TestParse_Flags(t *testing.T) {
	o, err := parse(newFlagSet(), []string{"-url", "https://api.example.com", "-timeout", "5s", "-version"})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", o.APIURL)
	assert.Equal(t, 5*time.Second, o.Timeout)
	assert.True(t, o.ShowVersion)
}

func TestParse_ConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_url":"http://from-file","token_file":"tok.json","log_level":"debug"}`), 0600))

	t.Setenv("CONFIG", path)
	t.Setenv("GOPHCARDS_TOKEN_FILE", "env-token.json")
	t.Setenv("GOPHCARDS_GENERATE_TIMEOUT", "90s")

	o, err := parse(newFlagSet(), nil)
	require.NoError(t, err)

	assert.Equal(t, "http://from-file", o.APIURL)
	assert.Equal(t, "env-token.json", o.TokenFile)
	assert.Equal(t, "debug", o.LogLevel)
	assert.Equal(t, 90*time.Second, o.GenerateTimeout)
}

func TestParse_ConfigFileTimeouts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"timeout":"10s","generate_timeout":"5m"}`), 0600))
	t.Setenv("CONFIG", path)

	o, err := parse(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, o.Timeout)
	assert.Equal(t, 5*time.Minute, o.GenerateTimeout)
}

func TestParse_ConfigFileTimeoutEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"timeout":"10s"}`), 0600))
	t.Setenv("CONFIG", path)
	t.Setenv("GOPHCARDS_TIMEOUT", "3s")

	o, err := parse(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, o.Timeout)
	assert.Equal(t, DefaultGenerateTimeout, o.GenerateTimeout)
}

func TestParse_ConfigFileBadTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"generate_timeout":"later"}`), 0600))
	t.Setenv("CONFIG", path)

	_, err := parse(newFlagSet(), nil)
	assert.ErrorContains(t, err, "invalid generate_timeout in config file")
}

func TestParse_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0600))
	t.Setenv("CONFIG", path)

	_, err := parse(newFlagSet(), nil)
	assert.ErrorContains(t, err, "error while parsing config file")
}

func TestParse_BadDurationEnv(t *testing.T) {
	t.Setenv("GOPHCARDS_TIMEOUT", "soon")

	_, err := parse(newFlagSet(), nil)
	assert.ErrorContains(t, err, "invalid GOPHCARDS_TIMEOUT")
}

func TestNormalize_RestoresBlankedDefaults(t *testing.T) {
	o := &Options{}
	o.normalize()
	assert.Equal(t, DefaultAPIURL, o.APIURL)
	assert.Equal(t, DefaultLogLevel, o.LogLevel)
	assert.Equal(t, DefaultTimeout, o.Timeout)
}

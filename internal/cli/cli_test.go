package cli

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retro-registry/nlretro/internal/registrytest"
)

// runCLI executes the command and returns stdout, stderr and the exit code.
func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewQueryCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), ExitCode(err)
}

func startRegistry(t *testing.T, reply registrytest.Reply) (*registrytest.Registry, string) {
	t.Helper()
	reg := registrytest.New()
	reg.Default(reply)
	srv := reg.Start(t)
	return reg, srv.URL + "/"
}

func TestUsageWithoutSearchTerm(t *testing.T) {
	reg, url := startRegistry(t, registrytest.Reply{Status: http.StatusOK, Body: `{}`})

	for _, args := range [][]string{{"--api-url", url}, {"--api-url", url, ""}} {
		stdout, _, code := runCLI(t, args...)
		assert.Equal(t, ExitFailure, code)
		assert.Equal(t, "Usage: "+os.Args[0]+" searchstring\n", stdout)
	}
	assert.Empty(t, reg.Requests())
}

func TestSuccessListing(t *testing.T) {
	_, url := startRegistry(t, registrytest.Reply{
		Status: http.StatusOK,
		Body:   `{"acropolis.nl":"2020-01-01","parthenon.nl":"2019-06-15"}`,
	})

	stdout, _, code := runCLI(t, "--api-url", url, "example")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Naam: acropolis.nl,datum: 2020-01-01\nNaam: parthenon.nl,datum: 2019-06-15\n", stdout)
}

func TestSuccessListingWithMalformedEntry(t *testing.T) {
	_, url := startRegistry(t, registrytest.Reply{
		Status: http.StatusOK,
		Body:   `{"a.nl":"2020-01-01","bad\nkey":"x","c.nl":{"since":2001},"d.nl":null}`,
	})

	stdout, _, code := runCLI(t, "--api-url", url, "example")
	assert.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	assert.Equal(t, []string{
		"Naam: a.nl,datum: 2020-01-01",
		"[key-value error]",
		`Naam: c.nl,datum: {"since":2001}`,
		"Naam: d.nl,datum: null",
	}, lines)
}

func TestEmptyListing(t *testing.T) {
	_, url := startRegistry(t, registrytest.Reply{Status: http.StatusOK, Body: `{}`})

	stdout, _, code := runCLI(t, "--api-url", url, "nothing")
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)
}

func TestErrorOutput(t *testing.T) {
	tests := []struct {
		name  string
		reply registrytest.Reply
		want  string
	}{
		{
			"forbidden",
			registrytest.Reply{Status: http.StatusForbidden, Body: `{"ErrorString":"ignored"}`},
			"Error (403):\nAccess forbidden - are you whitelisted?\n",
		},
		{
			"error string",
			registrytest.Reply{Status: http.StatusBadRequest, Body: `{"ErrorString":"Query too short"}`},
			"Error (400):\nQuery too short\n",
		},
		{
			"multi-line error string",
			registrytest.Reply{Status: http.StatusBadRequest, Body: `{"ErrorString":"Query\ntoo short"}`},
			"Error (400):\nQuery too short\n",
		},
		{
			"structured error string",
			registrytest.Reply{Status: http.StatusTeapot, Body: "{\"ErrorString\": {\n  \"code\": 7\n}}"},
			"Error (418):\n{\"code\":7}\n",
		},
		{
			"missing error string",
			registrytest.Reply{Status: http.StatusNotFound, Body: `{}`},
			"Error (404):\nundefined error\n",
		},
		{
			"malformed error body",
			registrytest.Reply{Status: http.StatusInternalServerError, Body: `<html>`},
			"Error (500):\nundefined error\n",
		},
		{
			"malformed success body",
			registrytest.Reply{Status: http.StatusOK, Body: `<html>`},
			"Error: Decoding of JSON has failed.\n",
		},
		{
			"array success body",
			registrytest.Reply{Status: http.StatusOK, Body: `["acropolis.nl"]`},
			"Error: Decoding of JSON has failed.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, url := startRegistry(t, tt.reply)
			stdout, _, code := runCLI(t, "--api-url", url, "acropolis")
			assert.Equal(t, ExitFailure, code)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestTransportError(t *testing.T) {
	reg := registrytest.New()
	srv := reg.Start(t)
	url := srv.URL
	srv.Close()

	stdout, _, code := runCLI(t, "--api-url", url, "acropolis")
	assert.Equal(t, ExitFailure, code)
	assert.True(t, strings.HasPrefix(stdout, "Error: request to "+url+"/search/acropolis failed: "), stdout)
	assert.Equal(t, 1, strings.Count(stdout, url), stdout)
}

func TestTimeout(t *testing.T) {
	reg := registrytest.New()
	reg.Default(registrytest.Reply{Status: http.StatusOK, Body: `{"a.nl":"1"}`, Delay: 5 * time.Second})
	srv := reg.Start(t)

	stdout, _, code := runCLI(t, "--api-url", srv.URL, "--timeout", "1", "acropolis")
	assert.Equal(t, ExitFailure, code)
	assert.True(t, strings.HasPrefix(stdout, "Error: request to "+srv.URL+"/search/acropolis failed: "), stdout)
	assert.Equal(t, 1, strings.Count(stdout, "\n"), stdout)
}

func TestInsecureFlag(t *testing.T) {
	reg := registrytest.New()
	reg.Default(registrytest.Reply{Status: http.StatusOK, Body: `{"secure.nl":"2021-02-03"}`})
	srv := reg.StartTLS(t)

	stdout, _, code := runCLI(t, "--api-url", srv.URL, "acropolis")
	assert.Equal(t, ExitFailure, code)
	assert.True(t, strings.HasPrefix(stdout, "Error: request to "), stdout)

	stdout, stderr, code := runCLI(t, "--api-url", srv.URL, "--insecure", "acropolis")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Naam: secure.nl,datum: 2021-02-03\n", stdout)
	assert.Contains(t, stderr, "TLS certificate verification is DISABLED")
}

func TestSearchTermInURL(t *testing.T) {
	reg, url := startRegistry(t, registrytest.Reply{Status: http.StatusOK, Body: `{}`})

	_, _, code := runCLI(t, "--api-url", url, "oude site", "extra")
	require.Equal(t, 0, code)
	_, _, code = runCLI(t, "--api-url", url, "--search-path", "search/acropolis", "example")
	require.Equal(t, 0, code)

	assert.Equal(t, []string{"/search/oude%20site", "/search/acropolis"}, reg.Requests())
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	reg := registrytest.New()
	reg.Handle("acropolis", registrytest.Reply{Status: http.StatusOK, Body: `{"acropolis.nl":"2020-01-01"}`})
	srv := reg.Start(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: "+srv.URL+"\nsearch_path: search/acropolis\ntimeout: 5\n"), 0o600))

	stdout, _, code := runCLI(t, "--config", path, "anything")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Naam: acropolis.nl,datum: 2020-01-01\n", stdout)

	stdout, _, code = runCLI(t, "--config", path, "--search-path", "search/{term}", "other")
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)

	assert.Equal(t, []string{"/search/acropolis", "/search/other"}, reg.Requests())
}

func TestInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"relative api url", []string{"--api-url", "retro.domain-registry.nl", "acropolis"}},
		{"negative timeout", []string{"--timeout=-1", "acropolis"}},
		{"unreadable config", []string{"--config", t.TempDir(), "acropolis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, code := runCLI(t, tt.args...)
			assert.Equal(t, ExitFailure, code)
			assert.True(t, strings.HasPrefix(stdout, "Error: "), stdout)
		})
	}
}

func TestDebugLogsToStderr(t *testing.T) {
	_, url := startRegistry(t, registrytest.Reply{Status: http.StatusOK, Body: `{"a.nl":"1"}`})

	stdout, stderr, code := runCLI(t, "--debug", "--api-url", url, "acropolis")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Naam: a.nl,datum: 1\n", stdout)
	assert.Contains(t, stderr, "Querying registry")
	assert.Contains(t, stderr, "Registry responded")
}

package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-match-client/internal/config"
	"github.com/jrsteele09/go-match-client/internal/testserver"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(config.New(), zerolog.Nop(), args, &out)
	return out.String(), err
}

func TestCommands(t *testing.T) {
	srv := testserver.Start(t)
	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("TOKEN_STORE", "file")
	t.Setenv("TOKEN_FILE", filepath.Join(t.TempDir(), "tokens"))
	t.Setenv("TOKEN_PASSPHRASE", "correct horse battery staple")

	out, err := runCommand(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "not signed in")

	_, err = runCommand(t, "login", "-email", testserver.DefaultEmail, "-password", "wrong")
	require.Error(t, err)

	out, err = runCommand(t, "login", "-email", testserver.DefaultEmail, "-password", testserver.DefaultPassword)
	require.NoError(t, err)
	require.Contains(t, out, "signed in as Sam Striker")

	// Credentials survive between runs through the encrypted file
	out, err = runCommand(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "signed in as Sam Striker <"+testserver.DefaultEmail+">")

	srv.ExpireAccessTokens()
	_, err = runCommand(t, "me")
	require.Error(t, err, "a rejected token at startup signs the session out")

	_, err = runCommand(t, "login", "-email", testserver.DefaultEmail, "-password", testserver.DefaultPassword)
	require.NoError(t, err)
	out, err = runCommand(t, "me")
	require.NoError(t, err)
	require.Contains(t, out, `"username": "player1"`)

	out, err = runCommand(t, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "signed out")

	out, err = runCommand(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "not signed in")
}

func TestUnknownCommand(t *testing.T) {
	t.Setenv("TOKEN_STORE", "memory")

	out, err := runCommand(t)
	require.Error(t, err)
	require.Contains(t, out, "usage:")

	out, err = runCommand(t, "dance")
	require.Error(t, err)
	require.Contains(t, out, "usage:")
}

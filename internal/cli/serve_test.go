package cli

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_StopsOnCancel(t *testing.T) {
	dir := isolate(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	cmd := NewServeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--addr", "127.0.0.1:0", "--db", filepath.Join(dir, "served.db")})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.FileExists(t, filepath.Join(dir, "served.db"))
}

func TestServeCommand_InvalidAddr(t *testing.T) {
	isolate(t)

	_, err := execute(t, "text", NewServeCommand, "--addr", "localhost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServeCommand_AddressInUse(t *testing.T) {
	isolate(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	_, err = execute(t, "text", NewServeCommand, "--addr", ln.Addr().String())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestServeCommand_InvalidOrigin(t *testing.T) {
	isolate(t)

	_, err := execute(t, "text", NewServeCommand, "--addr", "127.0.0.1:0", "--allowed-origin", "example.com")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "allowed_origins")
}

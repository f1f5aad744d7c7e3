//go:build !windows

package mpv

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/PizzaHomicide/anistream/internal/log"
)

// setupProcess puts mpv in its own process group so terminal signals aimed at the TUI don't reach it
func setupProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// defaultSocketPath returns a per-process unix socket path
func defaultSocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "anistream-mpv-"+strconv.Itoa(os.Getpid())+".sock")
}

// dial connects to the mpv unix socket
func dial(ctx context.Context, path string) (net.Conn, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("mpv socket not ready: %w", err)
	}
	log.Debug("Connecting to unix socket", "path", path)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mpv socket: %w", err)
	}
	return conn, nil
}

func removeSocket(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to remove mpv socket file", "path", path, "error", err)
	}
}

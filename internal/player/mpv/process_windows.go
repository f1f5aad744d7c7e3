//go:build windows

package mpv

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/PizzaHomicide/anistream/internal/log"
	"gopkg.in/natefinch/npipe.v2"
)

// setupProcess starts mpv in a new process group so console signals aimed at the TUI don't reach it
func setupProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// defaultSocketPath returns a per-process named pipe
func defaultSocketPath() string {
	return `\\.\pipe\anistream-mpv-` + strconv.Itoa(os.Getpid())
}

// dial connects to the mpv named pipe
func dial(ctx context.Context, path string) (net.Conn, error) {
	log.Debug("Connecting to Windows named pipe", "path", path)

	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	conn, err := npipe.DialTimeout(path, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mpv pipe: %w", err)
	}
	return conn, nil
}

// removeSocket is a no-op, named pipes go away with the process
func removeSocket(string) {}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/corey/aptlookup/internal/ports"
)

// exitCode is returned by query commands to end with a specific status.
// 0=found, 1=no match, 2=error.
type exitCode struct{ code int }

func (e exitCode) Error() string {
	switch e.code {
	case 0:
		return ""
	case 1:
		return "no match"
	default:
		return fmt.Sprintf("exit %d", e.code)
	}
}

// ExitCode extracts the exit code from an exitCode error.
// Returns -1 if the error is not an exitCode.
func ExitCode(err error) int {
	var ec exitCode
	if errors.As(err, &ec) {
		return ec.code
	}
	return -1
}

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock returns actionable guidance when a bbolt open fails due to
// lock contention. The daemon only holds the lock while it reads a table, so
// a lasting lock usually means another import or a crashed process.
func diagnoseDBLock(root string) string {
	sockPath := socket.SocketPath(root)
	client := socket.NewClient(sockPath)

	if client.Ping() {
		return "database is locked: the daemon may be reading it right now\n" +
			"  → retry in a moment\n" +
			"  → if it persists, stop the daemon:  aptlookup daemon stop"
	}

	if _, err := os.Stat(sockPath); err == nil {
		return fmt.Sprintf("database is locked: daemon socket exists but is not responding\n"+
			"  → a previous daemon may have crashed\n"+
			"  → find the process:  ps aux | grep 'aptlookup daemon'\n"+
			"  → kill it:           kill <PID>\n"+
			"  → clean up socket:   rm %s", sockPath)
	}

	return "database is locked by another process\n" +
		"  → another 'aptlookup import' may still be running\n" +
		"  → find the process:  ps aux | grep 'aptlookup'\n" +
		"  → then retry your command"
}

// loadError adds guidance to a failed in-process load.
func loadError(root string, err error) error {
	switch {
	case isDBLockError(err):
		return fmt.Errorf("%w\n%s", err, diagnoseDBLock(root))
	case errors.Is(err, ports.ErrLoadShape):
		return fmt.Errorf("%w\n  → check the source layout (header row, column names)", err)
	case errors.Is(err, ports.ErrLoadTransport):
		return fmt.Errorf("%w\n  → the source may be unreachable; retry with: aptlookup reload", err)
	}
	return err
}

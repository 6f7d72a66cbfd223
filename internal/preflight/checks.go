package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"fieldframe/internal/config"
	"fieldframe/internal/remote"
	"fieldframe/internal/services"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinary verifies an external binary is resolvable on PATH.
func CheckBinary(name, command, purpose string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "binary not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%q not found on PATH (%s)", command, purpose)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckRemote verifies the object store endpoint is reachable and the
// session token is valid. A single attempt with a short timeout.
func CheckRemote(ctx context.Context, cfg *config.Config) Result {
	const name = "Remote object store"

	if !cfg.RemoteConfigured() {
		return Result{Name: name, Detail: "base_url or token missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := remote.NewClient(cfg)
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeRemoteError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "session valid"}
}

func summarizeRemoteError(err error) string {
	if errors.Is(err, services.ErrNotAuthenticated) {
		return "authentication failed (check remote.token)"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "endpoint unresponsive (timed out)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "endpoint unreachable (timed out)"
	}
	return err.Error()
}

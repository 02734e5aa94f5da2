// Package service manages the adminlogd systemd user units.
package service

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
)

const (
	unitName   = "adminlogd.service"
	socketName = "adminlogd.socket"
)

// UnitContents returns the service unit for the given binary and config.
func UnitContents(binaryPath, configPath string) string {
	return fmt.Sprintf(`[Unit]
Description=adminlog protocol daemon
Documentation=https://github.com/modoterra/adminlog
Requires=%s
After=%s

[Service]
Type=notify
ExecStart=%s --config %s
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`, socketName, socketName, binaryPath, configPath)
}

// ListenAddress turns a host:port listen address into the numeric form
// ListenStream= accepts: "port", "ip:port" or "[ip6]:port". Host names are
// resolved.
func ListenAddress(listen string) (string, error) {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("listen address %q: %w", listen, err)
	}
	if host == "" {
		n, err := net.LookupPort("tcp", port)
		if err != nil {
			return "", fmt.Errorf("listen address %q: %w", listen, err)
		}
		return strconv.Itoa(n), nil
	}
	addr, err := net.ResolveTCPAddr("tcp", listen)
	if err != nil {
		return "", fmt.Errorf("listen address %q: %w", listen, err)
	}
	ip, ok := netip.AddrFromSlice(addr.IP)
	if !ok {
		return "", fmt.Errorf("listen address %q: no usable IP", listen)
	}
	return netip.AddrPortFrom(ip.Unmap(), uint16(addr.Port)).String(), nil
}

// SocketContents returns the socket unit that activates adminlogd on listen,
// which must already be in ListenAddress form.
func SocketContents(listen string) string {
	return fmt.Sprintf(`[Unit]
Description=adminlog admin socket

[Socket]
ListenStream=%s

[Install]
WantedBy=sockets.target
`, listen)
}

// UnitPath returns the path to the systemd user unit file.
func UnitPath() (string, error) {
	return userUnitPath(unitName)
}

// SocketPath returns the path to the systemd user socket unit file.
func SocketPath() (string, error) {
	return userUnitPath(socketName)
}

func userUnitPath(name string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(configDir, "systemd", "user", name), nil
}

// Install writes both units, reloads systemd, and enables+starts the socket.
func Install(ctx context.Context, configPath, listen string) error {
	listen, err := ListenAddress(listen)
	if err != nil {
		return err
	}
	binaryPath, err := exec.LookPath("adminlogd")
	if err != nil {
		return fmt.Errorf("adminlogd not found in PATH: %w", err)
	}
	binaryPath, err = filepath.Abs(binaryPath)
	if err != nil {
		return fmt.Errorf("cannot resolve adminlogd path: %w", err)
	}
	configPath, err = filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("cannot resolve config path: %w", err)
	}

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}
	socketPath, err := SocketPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	if err := os.WriteFile(unitPath, []byte(UnitContents(binaryPath, configPath)), 0o644); err != nil {
		return fmt.Errorf("cannot write unit file: %w", err)
	}
	if err := os.WriteFile(socketPath, []byte(SocketContents(listen)), 0o644); err != nil {
		return fmt.Errorf("cannot write socket file: %w", err)
	}

	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{socketPath, unitPath}, false, true); err != nil {
		return fmt.Errorf("enable units: %w", err)
	}
	return waitJob(ctx, socketName, "start", func(ch chan<- string) (int, error) {
		return conn.StartUnitContext(ctx, socketName, "replace", ch)
	})
}

// Uninstall stops+disables the units, removes their files, and reloads systemd.
func Uninstall(ctx context.Context) error {
	unitPath, err := UnitPath()
	if err != nil {
		return err
	}
	socketPath, err := SocketPath()
	if err != nil {
		return err
	}

	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	// Best-effort stop and disable; ignore errors if not running.
	for _, name := range []string{unitName, socketName} {
		_ = waitJob(ctx, name, "stop", func(ch chan<- string) (int, error) {
			return conn.StopUnitContext(ctx, name, "replace", ch)
		})
	}
	_, _ = conn.DisableUnitFilesContext(ctx, []string{socketName, unitName}, false)

	for _, p := range []string{unitPath, socketPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("cannot remove unit file: %w", err)
		}
	}
	return conn.ReloadContext(ctx)
}

// Status returns a human-readable status string for the daemon listening
// on addr.
func Status(ctx context.Context, addr string) string {
	var lines []string

	if c, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
		c.Close()
		lines = append(lines, "listener: accepting ("+addr+")")
	} else {
		lines = append(lines, "listener: not accepting ("+addr+")")
	}

	unitPath, err := UnitPath()
	if err != nil {
		return strings.Join(lines, "\n")
	}
	if _, statErr := os.Stat(unitPath); statErr != nil {
		lines = append(lines, "systemd user service: not installed")
		return strings.Join(lines, "\n")
	}

	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		lines = append(lines, "systemd user service: unknown")
		return strings.Join(lines, "\n")
	}
	defer conn.Close()

	statuses, err := conn.ListUnitsByNamesContext(ctx, []string{socketName, unitName})
	if err != nil {
		lines = append(lines, "systemd user service: unknown")
		return strings.Join(lines, "\n")
	}
	for _, u := range statuses {
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", u.Name, u.ActiveState, u.SubState))
	}
	return strings.Join(lines, "\n")
}

func waitJob(ctx context.Context, name, action string, start func(ch chan<- string) (int, error)) error {
	ch := make(chan string, 1)
	if _, err := start(ch); err != nil {
		return fmt.Errorf("systemd %s %s: %w", action, name, err)
	}
	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("systemd %s %s: job result %q", action, name, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

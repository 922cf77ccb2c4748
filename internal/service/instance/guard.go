package instance

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning indicates a live daemon holds the lock file.
var ErrAlreadyRunning = errors.New("another instance is already running")

// LockSuffix is appended to the database path to form the lock file path.
const LockSuffix = ".pid"

// lockFilePermissions keeps the lock file private to the owner.
const lockFilePermissions = 0o600

// Guard owns a pid lock file tied to one marker database.
// Processes running other databases, and short-lived subcommands, are not peers.
type Guard struct {
	// path is the lock file.
	path string
	// name is the executable name a live peer must have.
	name string
	// self is the current process ID.
	self int
	// findProcess looks up a process by ID, returning nil when it is gone.
	findProcess func(pid int) (ps.Process, error)
	// kill terminates a process by ID.
	kill func(pid int) error
}

// LockPath returns the lock file guarding databaseFile.
func LockPath(databaseFile string) string {
	return databaseFile + LockSuffix
}

// NewGuard creates a guard on path for the running executable.
func NewGuard(path string) (*Guard, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	return NewGuardFor(path, filepath.Base(executable)), nil
}

// NewGuardFor creates a guard on path for processes named name.
func NewGuardFor(path, name string) *Guard {
	return &Guard{
		path:        path,
		name:        name,
		self:        os.Getpid(),
		findProcess: ps.FindProcess,
		kill:        killProcess,
	}
}

// Path returns the lock file path.
func (g *Guard) Path() string {
	return g.path
}

// Peer returns the ID of the live daemon recorded in the lock file, or zero.
// A missing or malformed file, a dead process or a recycled pid yields zero.
func (g *Guard) Peer() (int, error) {
	pid, err := g.recorded()
	if err != nil || pid == 0 || pid == g.self {
		return 0, err
	}

	process, err := g.findProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("find process %d: %w", pid, err)
	}

	if process == nil || process.Executable() != g.name {
		return 0, nil
	}

	return pid, nil
}

// Ensure takes the lock file, failing with ErrAlreadyRunning when a live peer holds it.
// With replace set, the peer is killed first.
func (g *Guard) Ensure(replace bool) error {
	peer, err := g.Peer()
	if err != nil {
		return err
	}

	if peer != 0 {
		if !replace {
			return fmt.Errorf("%w: %s (pid %d, lock %s)", ErrAlreadyRunning, g.name, peer, g.path)
		}

		if err = g.kill(peer); err != nil {
			return fmt.Errorf("terminate %s (pid %d): %w", g.name, peer, err)
		}
	}

	if err = os.Remove(g.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale lock: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(g.path), 0o750); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(g.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, lockFilePermissions)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: lock %s was taken concurrently", ErrAlreadyRunning, g.path)
	}

	if err != nil {
		return fmt.Errorf("create lock: %w", err)
	}

	_, err = fmt.Fprintf(file, "%d\n", g.self)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("write lock: %w", err)
	}

	return nil
}

// Release removes the lock file if this process still owns it.
func (g *Guard) Release() error {
	pid, err := g.recorded()
	if err != nil || pid != g.self {
		return err
	}

	if err = os.Remove(g.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove lock: %w", err)
	}

	return nil
}

// recorded reads the pid stored in the lock file; zero means none.
func (g *Guard) recorded() (int, error) {
	data, err := os.ReadFile(g.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("read lock: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}

	return pid, nil
}

func killProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return process.Kill()
}

package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tools.zach/dev/flagman/internal/paths"
)

// ///////////////////////////////////////////////
// PID File
// ///////////////////////////////////////////////

// errLocked is returned by lockFile when another process holds the lock.
var errLocked = errors.New("file is locked by another process")

// runningError reports that another flagman holds the PID file.
type runningError struct {
	// PID is the other instance's process ID, or 0 if the file was unreadable.
	PID int
}

func (e *runningError) Error() string {
	if e.PID == 0 {
		return "flagman already running"
	}
	return fmt.Sprintf("flagman already running (pid %d)", e.PID)
}

// pidFile is a locked PID file owned by this process. The lock lives as long
// as the file stays open, so a crashed daemon never blocks the next start.
type pidFile struct {
	path  string
	token string
	f     *os.File
}

// pidToken returns a random 16-character hex token. It is written next to
// the PID so [pidFile.Release] only deletes a file this instance wrote.
func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// acquirePID locks the data directory's PID file and writes "PID:TOKEN" to
// it. A file left by a dead instance is unlocked and simply taken over. If a
// live instance holds it the error is a [*runningError].
func acquirePID(dp paths.DataDir) (*pidFile, error) {
	path := dp.PID()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lockFile(f); err != nil {
		defer f.Close()
		if errors.Is(err, errLocked) {
			return nil, &runningError{PID: readPID(f)}
		}
		return nil, fmt.Errorf("lock PID file: %w", err)
	}

	p := &pidFile{path: path, token: pidToken(), f: f}
	if err := p.write(); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, err
	}
	return p, nil
}

func (p *pidFile) write() error {
	if err := p.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate PID file: %w", err)
	}
	if _, err := p.f.WriteAt([]byte(fmt.Sprintf("%d:%s", os.Getpid(), p.token)), 0); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	return p.f.Sync()
}

// Release drops the lock and deletes the PID file if it still carries this
// instance's token. Safe to call on nil.
func (p *pidFile) Release() {
	if p == nil || p.f == nil {
		return
	}
	_ = unlockFile(p.f)
	p.f.Close()
	p.f = nil

	// Windows cannot delete an open file, so the token is checked after close.
	data, err := os.ReadFile(p.path)
	if err != nil {
		return
	}
	if _, token := parsePID(string(data)); token == p.token {
		os.Remove(p.path)
	}
}

// readPID returns the PID recorded in f, or 0.
func readPID(f *os.File) int {
	pid, _ := parsePID(readAll(f))
	return pid
}

// readAll reads f from the start through the open handle. Windows refuses
// other opens of a locked region.
func readAll(f *os.File) string {
	data, err := io.ReadAll(io.NewSectionReader(f, 0, 1<<10))
	if err != nil {
		return ""
	}
	return string(data)
}

// parsePID splits "PID:TOKEN". A malformed PID reads as 0.
func parsePID(s string) (pid int, token string) {
	head, token, _ := strings.Cut(strings.TrimSpace(s), ":")
	pid, err := strconv.Atoi(head)
	if err != nil || pid < 0 {
		pid = 0
	}
	return pid, token
}

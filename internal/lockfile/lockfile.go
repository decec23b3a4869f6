// Package lockfile implements the advisory cross-process mutex shared
// with the scanner process. The lock is a single file whose contents
// name the owner; the file modification time is the acquisition
// timestamp used for staleness computation.
package lockfile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTTL is the maximum age of a lock record before any contender
// may forcibly reclaim it from a crashed holder.
const DefaultTTL = 300 * time.Second

// Lock is a filesystem-mediated advisory mutex.
type Lock struct {
	path    string
	ownerID string
	ttl     time.Duration
	held    bool
	log     logrus.FieldLogger

	now func() time.Time // injectable for tests
}

// New creates a Lock at path for the given owner identity. An empty
// ownerID defaults to "hostname:pid".
func New(path, ownerID string, ttl time.Duration, log logrus.FieldLogger) *Lock {
	if ownerID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown"
		}
		ownerID = fmt.Sprintf("%s:%d", host, os.Getpid())
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lock{
		path:    path,
		ownerID: ownerID,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
	}
}

// OwnerID returns this process's owner identity string.
func (l *Lock) OwnerID() string {
	return l.ownerID
}

// Held reports whether this process currently considers itself the holder.
func (l *Lock) Held() bool {
	return l.held
}

// ClearStale removes any pre-existing lock record. Called once at
// process startup: a record that predates this process is a crash
// leftover regardless of age.
func (l *Lock) ClearStale() {
	owner, _, err := l.read()
	if err != nil {
		return
	}
	if err := os.Remove(l.path); err != nil {
		l.log.WithError(err).Warnf("lock: could not remove stale record at %s (owner %q)", l.path, owner)
		return
	}
	l.log.Infof("lock: removed stale record at %s (owner %q)", l.path, owner)
}

// TryAcquire attempts to atomically create the lock record. Returns
// true when this process now holds the lock. A fresh record held by
// another owner yields false; a record older than the TTL is forcibly
// reclaimed.
func (l *Lock) TryAcquire() (bool, error) {
	if l.held {
		return true, nil
	}

	if err := l.create(); err == nil {
		l.held = true
		l.log.Infof("lock: acquired %s as %s", l.path, l.ownerID)
		return true, nil
	} else if !os.IsExist(err) {
		return false, fmt.Errorf("lock: create %s: %w", l.path, err)
	}

	owner, acquiredAt, err := l.read()
	if err != nil {
		// Record vanished between create and read; retry next cycle.
		return false, nil
	}

	age := l.now().Sub(acquiredAt)
	if age <= l.ttl {
		return false, nil
	}

	// Holder exceeded the TTL: reclaim for liveness.
	l.log.Warnf("lock: record at %s (owner %q) is %s old, exceeds TTL %s, reclaiming",
		l.path, owner, age.Round(time.Second), l.ttl)
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("lock: reclaim %s: %w", l.path, err)
	}
	if err := l.create(); err != nil {
		if os.IsExist(err) {
			// Another contender won the reclaim race.
			return false, nil
		}
		return false, fmt.Errorf("lock: create after reclaim %s: %w", l.path, err)
	}
	l.held = true
	l.log.Infof("lock: reclaimed %s as %s", l.path, l.ownerID)
	return true, nil
}

// Reassert recreates the lock record if it disappeared while this
// process considers itself the holder.
func (l *Lock) Reassert() error {
	if !l.held {
		return nil
	}
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("lock: stat %s: %w", l.path, err)
	}

	if err := l.create(); err != nil && !os.IsExist(err) {
		return fmt.Errorf("lock: reassert %s: %w", l.path, err)
	}
	l.log.Infof("lock: re-asserted %s for %s", l.path, l.ownerID)
	return nil
}

// Release removes the lock record, but only when its contents still
// identify this process as the owner. A record legitimately reclaimed
// by another contender after a stall is left untouched.
func (l *Lock) Release() {
	if !l.held {
		return
	}
	l.held = false

	owner, _, err := l.read()
	if err != nil {
		return
	}
	if owner != l.ownerID {
		l.log.Infof("lock: record at %s now owned by %q, leaving it", l.path, owner)
		return
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.log.WithError(err).Warnf("lock: could not release %s", l.path)
		return
	}
	l.log.Infof("lock: released %s", l.path)
}

// HeldByOther reports whether a fresh record owned by another process
// exists, without acquiring.
func (l *Lock) HeldByOther() bool {
	owner, acquiredAt, err := l.read()
	if err != nil {
		return false
	}
	if owner == l.ownerID {
		return false
	}
	return l.now().Sub(acquiredAt) <= l.ttl
}

// create atomically creates the record naming this owner.
func (l *Lock) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(l.ownerID + "\n")
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// read returns the record's owner and acquisition time (file mtime).
func (l *Lock) read() (string, time.Time, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return "", time.Time{}, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "", time.Time{}, err
	}
	return strings.TrimSpace(string(data)), info.ModTime(), nil
}

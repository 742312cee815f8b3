package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrSettingsLocked is returned when another process holds the settings lock
// for longer than the lock timeout.
var ErrSettingsLocked = errors.New("settings file is locked")

// LockConfig controls how long a writer waits for the settings lock
type LockConfig struct {
	Timeout    time.Duration
	RetryDelay time.Duration
	// StaleAfter is the age after which a leftover lock file is ignored.
	StaleAfter time.Duration
}

// DefaultLockConfig returns the lock timings used by config init
func DefaultLockConfig() LockConfig {
	return LockConfig{
		Timeout:    5 * time.Second,
		RetryDelay: 50 * time.Millisecond,
		StaleAfter: time.Minute,
	}
}

// settingsLock is an exclusive lock file next to the settings file
type settingsLock struct {
	path string
	file *os.File
}

func acquireSettingsLock(path string, lc LockConfig) (*settingsLock, error) {
	lockPath := path + ".lock"
	deadline := time.Now().Add(lc.Timeout)

	for {
		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			fmt.Fprintf(file, "pid:%d\ntime:%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
			return &settingsLock{path: lockPath, file: file}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lc.StaleAfter {
			os.Remove(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrSettingsLocked, path)
		}
		time.Sleep(lc.RetryDelay)
	}
}

func (l *settingsLock) release() error {
	closeErr := l.file.Close()
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return closeErr
}

// ReplaceSettings rewrites the settings file at path under the settings lock.
// write receives a temporary path in the same directory; on success the
// temporary file replaces path and the previous content is kept in
// path+".backup".
func ReplaceSettings(path string, lc LockConfig, write func(tmpPath string) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	lock, err := acquireSettingsLock(path, lc)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	if data, readErr := os.ReadFile(path); readErr == nil {
		if err := os.WriteFile(path+".backup", data, 0600); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	tmpPath := path + ".tmp" + filepath.Ext(path)
	if err := write(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// RecoverFromBackup restores the settings file from its backup
func RecoverFromBackup(path string) error {
	data, err := os.ReadFile(path + ".backup")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no backup file found at %s", path+".backup")
		}
		return fmt.Errorf("failed to read backup file: %w", err)
	}
	return ReplaceSettings(path, DefaultLockConfig(), func(tmp string) error {
		return os.WriteFile(tmp, data, 0600)
	})
}

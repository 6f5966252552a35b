package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	envHome     = "IMTEST_HOME"
	homeDirName = ".imtest"
)

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the directory imtest writes reports and logs under:
// $IMTEST_HOME when set, else ~/.imtest, else .imtest in the working
// directory. The result is cached for the life of the process.
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetReportsDir returns <home>/reports, the default report location.
func GetReportsDir() string {
	return filepath.Join(GetHome(), "reports")
}

// GetLogsDir returns <home>/logs.
func GetLogsDir() string {
	return filepath.Join(GetHome(), "logs")
}

// NewLogFile creates <home>/logs if needed and returns the path of the
// process log for a run started at now.
func NewLogFile(now time.Time) (string, error) {
	dir := GetLogsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create logs dir: %w", err)
	}
	return filepath.Join(dir, "imtest_"+now.Format("2006-01-02_15-04-05")+".log"), nil
}

func resolveHome() string {
	if env := os.Getenv(envHome); env != "" {
		return env
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, homeDirName)
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, homeDirName)
	}
	return homeDirName
}

// ResetHome drops the cached home directory.
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}

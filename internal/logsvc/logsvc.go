package logsvc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"forecast_srv/internal/errs"

	"github.com/sirupsen/logrus"
)

const (
	defaultTailLines = 100
	maxTailLines     = 10000
)

// TailResult holds the tail of the log file.
type TailResult struct {
	Logs          []string `json:"logs"`
	TotalLines    int      `json:"total_lines"`
	ReturnedLines int      `json:"returned_lines"`
}

// LogService reads, clears and serves one append-only log file.
type LogService struct {
	path   string
	logger *logrus.Logger
}

// NewLogService creates the service over the file at path.
func NewLogService(path string, logger *logrus.Logger) *LogService {
	return &LogService{path: path, logger: logger}
}

// Path returns the location of the served log file.
func (s *LogService) Path() string {
	return s.path
}

// Tail returns the last n non-empty lines in original order, plus the
// total physical line count. n is clamped to [1, 10000].
func (s *LogService) Tail(n int) (*TailResult, error) {
	if n < 1 {
		n = 1
	}
	if n > maxTailLines {
		n = maxTailLines
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &TailResult{Logs: []string{}}, nil
		}
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	// A trailing newline produces one empty artifact element.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)

	start := 0
	if total > n {
		start = total - n
	}

	entries := make([]string, 0, n)
	for _, line := range lines[start:] {
		line = strings.TrimSpace(line)
		if line != "" {
			entries = append(entries, line)
		}
	}

	s.logger.WithField("returned_lines", len(entries)).Debug("Log tail served")

	return &TailResult{
		Logs:          entries,
		TotalLines:    total,
		ReturnedLines: len(entries),
	}, nil
}

// Clear backs the current log file up under a timestamped name and then
// truncates it. A missing log file is success, not an error.
func (s *LogService) Clear() (string, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return "Log file does not exist", nil
		}
		return "", fmt.Errorf("failed to stat log file: %w", err)
	}

	backupPath := s.backupPath(time.Now())
	if err := copyFile(s.path, backupPath); err != nil {
		return "", fmt.Errorf("failed to back up log file: %w", err)
	}

	if err := os.Truncate(s.path, 0); err != nil {
		return "", fmt.Errorf("failed to truncate log file: %w", err)
	}

	backupName := filepath.Base(backupPath)
	s.logger.WithField("backup", backupName).Info("Log file cleared")
	return fmt.Sprintf("Logs cleared. Backup created: %s", backupName), nil
}

// Open opens the raw log file for download streaming.
func (s *LogService) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFoundf("log file not found")
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// backupPath derives the timestamped backup file name next to the log.
func (s *LogService) backupPath(now time.Time) string {
	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(s.path, ext)
	return fmt.Sprintf("%s.backup.%s%s", base, now.Format("20060102150405"), ext)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

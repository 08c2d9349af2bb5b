// Package gitlog reads commits and diffs from a local repository through
// the git binary.
package gitlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
)

const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
)

// ErrNotRepository is returned when dir is not inside a git work tree
var ErrNotRepository = errors.New("not a git repository")

func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "not a git repository") {
			return "", ErrNotRepository
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return stdout.String(), nil
}

// Log returns up to limit commits from HEAD, newest first, all pending
func Log(ctx context.Context, dir string, limit int) ([]domain.Commit, error) {
	if limit <= 0 {
		limit = 50
	}
	out, err := run(ctx, dir, "log",
		"-n", strconv.Itoa(limit),
		"--numstat",
		"--format="+recordSep+"%h"+fieldSep+"%an"+fieldSep+"%ar"+fieldSep+"%s",
	)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

func parseLog(out string) []domain.Commit {
	commits := []domain.Commit{}
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		header, stats, _ := strings.Cut(record, "\n")
		fields := strings.SplitN(header, fieldSep, 4)
		if len(fields) < 4 {
			continue
		}
		c := domain.Commit{
			Hash:      fields[0],
			Author:    fields[1],
			Timestamp: fields[2],
			Message:   fields[3],
			Status:    domain.StatusPending,
		}
		for _, line := range strings.Split(stats, "\n") {
			parts := strings.Fields(line)
			if len(parts) < 3 {
				continue
			}
			c.FilesChanged++
			// binary files report "-"
			if n, err := strconv.Atoi(parts[0]); err == nil {
				c.Additions += n
			}
			if n, err := strconv.Atoi(parts[1]); err == nil {
				c.Deletions += n
			}
		}
		commits = append(commits, c)
	}
	return commits
}

// Diff returns the unified diff a commit introduced
func Diff(ctx context.Context, dir, hash string) (string, error) {
	if strings.HasPrefix(hash, "-") {
		return "", fmt.Errorf("invalid commit %q", hash)
	}
	return run(ctx, dir, "show", "--format=", "--no-color", "--unified=3", hash)
}

// IsRepository reports whether dir is inside a git work tree
func IsRepository(ctx context.Context, dir string) bool {
	out, err := run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

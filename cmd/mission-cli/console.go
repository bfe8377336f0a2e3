package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/cuongbtq/mission-control/internal/control/domain"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var stateLabels = map[domain.State]string{
	domain.StateSubmitting: "Uploading source material",
	domain.StateAnalyzing:  "Analyzing source material",
	domain.StateWriting:    "Writing campaign copy",
	domain.StateRendering:  "Rendering clips",
	domain.StateCompleted:  "Mission complete",
	domain.StateFailed:     "Mission failed",
}

// consoleSubscriber prints one line per state transition.
type consoleSubscriber struct {
	w        io.Writer
	colorize bool
	started  time.Time
}

func newConsoleSubscriber(w io.Writer) *consoleSubscriber {
	return &consoleSubscriber{w: w, colorize: shouldColorize(w), started: time.Now()}
}

func (c *consoleSubscriber) StateChanged(s domain.Snapshot) {
	fmt.Fprintln(c.w, renderStateLine(s, time.Since(c.started), c.colorize))
}

func (c *consoleSubscriber) Completed(domain.Snapshot) {}

func renderStateLine(s domain.Snapshot, elapsed time.Duration, colorize bool) string {
	label := stateLabels[s.State]
	if label == "" {
		label = string(s.State)
	}
	if s.State == domain.StateFailed && s.Error != "" {
		label += ": " + s.Error
	}
	if s.JobID != "" && s.State == domain.StateAnalyzing {
		label += fmt.Sprintf(" (job %s)", s.JobID)
	}

	line := fmt.Sprintf("  %6s  %-10s  %s", elapsed.Truncate(time.Second), s.State, label)
	if colorize {
		if color := stateColor(s.State); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func stateColor(s domain.State) string {
	switch s {
	case domain.StateCompleted:
		return ansiGreen
	case domain.StateFailed:
		return ansiRed
	case domain.StateSubmitting:
		return ansiYellow
	case domain.StateAnalyzing, domain.StateWriting, domain.StateRendering:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	return []string{line, strings.Repeat("-", len(line))}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

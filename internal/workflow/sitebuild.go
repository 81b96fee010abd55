package workflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// SiteBuild runs the external build pipeline that turns the gathered
// requirements into a running website. Build output is streamed line by line
// to the presentation layer; when the dev server announces itself the site
// URL is surfaced through OnReady.
type SiteBuild struct {
	// Command is the pipeline invocation, program first. Must not be empty.
	Command []string

	// Dir is the working directory for the pipeline; empty means inherited.
	Dir string

	// SiteURL is the address reported once the pipeline is ready.
	SiteURL string

	// ReadyMarker is the output substring that signals the dev server is
	// serving. Empty disables ready detection; OnReady then fires after a
	// clean exit.
	ReadyMarker string

	// OnOutput receives each build output line. May be nil.
	OnOutput func(line string)

	// OnReady receives the site URL once the pipeline is serving. May be nil.
	OnReady func(url string)

	// Log is the workflow logger. Nil uses the default.
	Log *slog.Logger
}

// Run implements [Workflow]. The tool carries no arguments.
func (s *SiteBuild) Run(ctx context.Context, _ string) error {
	if len(s.Command) == 0 {
		return errors.New("workflow: site build has no command configured")
	}
	log := s.Log
	if log == nil {
		log = slog.Default()
	}

	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	cmd.Dir = s.Dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("workflow: site build stdout: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("workflow: site build start: %w", err)
	}
	log.Info("site build running", "command", strings.Join(s.Command, " "))

	ready := false
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if s.OnOutput != nil {
			s.OnOutput(line)
		}
		if !ready && s.ReadyMarker != "" && strings.Contains(line, s.ReadyMarker) {
			ready = true
			log.Info("site build ready", "url", s.SiteURL)
			if s.OnReady != nil {
				s.OnReady(s.SiteURL)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("site build output truncated", "err", err)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("workflow: site build: %w", err)
	}
	if !ready && s.OnReady != nil {
		s.OnReady(s.SiteURL)
	}
	return nil
}

var _ Workflow = (*SiteBuild)(nil)

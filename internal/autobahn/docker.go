package autobahn

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/joho/godotenv"
)

// Defaults, overridable through the environment (see NewRunner).
const (
	defaultRuntime = "docker"
	defaultImage   = "crossbario/autobahn-testsuite"
	containerName  = "ws-testsuite"
)

// Runner assembles the container invocation for one suite run.
type Runner struct {
	Runtime string // container runtime binary
	Image   string // suite image
	WorkDir string // host directory holding config/ and reports/
}

// NewRunner builds a Runner from the current working directory and the
// environment. A .env file in the working directory is honored when present;
// WSGATE_RUNTIME and WSGATE_IMAGE override the defaults.
func NewRunner() (*Runner, error) {
	_ = godotenv.Load() // optional; a missing .env is not an error

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	r := &Runner{Runtime: defaultRuntime, Image: defaultImage, WorkDir: wd}
	if v := os.Getenv("WSGATE_RUNTIME"); v != "" {
		r.Runtime = v
	}
	if v := os.Getenv("WSGATE_IMAGE"); v != "" {
		r.Image = v
	}
	return r, nil
}

// Args returns the full argument vector for the suite container, excluding
// the runtime binary itself: an interactive, auto-removing container on the
// host network, with the suite config file and the reports directory
// bind-mounted in.
func (r *Runner) Args(s Suite) []string {
	return []string{
		"run", "-it", "--rm",
		"-v", fmt.Sprintf("%s/%s:/%s", r.WorkDir, s.ConfigPath(), s.ConfigPath()),
		"-v", fmt.Sprintf("%s/reports:/reports", r.WorkDir),
		"--network", "host",
		"--name", containerName,
		r.Image,
		"wstest", "--mode", s.TestMode(), "--spec", "/" + s.ConfigPath(),
	}
}

// Command builds the exec.Cmd for a suite run with the terminal attached.
func (r *Runner) Command(ctx context.Context, s Suite) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.Runtime, r.Args(s)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// Run launches the suite container and blocks until it exits. Failures from
// the runtime or the tool surface untranslated.
func (r *Runner) Run(ctx context.Context, s Suite) error {
	return r.Command(ctx, s).Run()
}

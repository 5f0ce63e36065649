package autobahn

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestRunnerArgs(t *testing.T) {
	r := &Runner{Runtime: "docker", Image: defaultImage, WorkDir: "/work"}

	want := []string{
		"run", "-it", "--rm",
		"-v", "/work/config/fuzzingclient.json:/config/fuzzingclient.json",
		"-v", "/work/reports:/reports",
		"--network", "host",
		"--name", "ws-testsuite",
		"crossbario/autobahn-testsuite",
		"wstest", "--mode", "fuzzingclient", "--spec", "/config/fuzzingclient.json",
	}
	if got := r.Args(SuiteClient); !reflect.DeepEqual(got, want) {
		t.Fatalf("client args:\n got %q\nwant %q", got, want)
	}

	serverArgs := r.Args(SuiteServer)
	for _, arg := range serverArgs {
		if arg == "fuzzingclient" || arg == "/config/fuzzingclient.json" {
			t.Fatalf("server args leaked client values: %q", serverArgs)
		}
	}
}

// TestRunnerArgsIdempotent: same suite in, same command out.
func TestRunnerArgsIdempotent(t *testing.T) {
	r := &Runner{Runtime: "docker", Image: defaultImage, WorkDir: "/work"}
	if !reflect.DeepEqual(r.Args(SuiteServer), r.Args(SuiteServer)) {
		t.Fatal("Args is not deterministic")
	}
}

// chdir changes to dir for the duration of the test, mirroring t.Chdir,
// which is unavailable before Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestNewRunnerDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WSGATE_RUNTIME", "")
	t.Setenv("WSGATE_IMAGE", "")

	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if r.Runtime != "docker" || r.Image != "crossbario/autobahn-testsuite" {
		t.Fatalf("defaults: runtime=%q image=%q", r.Runtime, r.Image)
	}
	wd, _ := os.Getwd()
	if r.WorkDir != wd {
		t.Fatalf("workdir: got %q, want %q", r.WorkDir, wd)
	}
}

func TestNewRunnerEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WSGATE_RUNTIME", "podman")
	t.Setenv("WSGATE_IMAGE", "example/testsuite:pinned")

	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if r.Runtime != "podman" {
		t.Errorf("runtime: got %q", r.Runtime)
	}
	if r.Image != "example/testsuite:pinned" {
		t.Errorf("image: got %q", r.Image)
	}
}

func TestNewRunnerDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := "WSGATE_IMAGE=example/from-dotenv:1\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	chdir(t, dir)

	// godotenv only fills unset variables; make sure the slate is clean and
	// the value it sets does not leak into other tests.
	os.Unsetenv("WSGATE_IMAGE")
	t.Cleanup(func() { os.Unsetenv("WSGATE_IMAGE") })

	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if r.Image != "example/from-dotenv:1" {
		t.Errorf("image: got %q", r.Image)
	}
}

func TestCommandWiring(t *testing.T) {
	r := &Runner{Runtime: "docker", Image: defaultImage, WorkDir: "/work"}
	cmd := r.Command(context.Background(), SuiteServer)

	if len(cmd.Args) < 2 || cmd.Args[1] != "run" {
		t.Fatalf("unexpected argv: %q", cmd.Args)
	}
	if cmd.Stdin != os.Stdin || cmd.Stdout != os.Stdout || cmd.Stderr != os.Stderr {
		t.Fatal("the container must run with the terminal attached")
	}
}

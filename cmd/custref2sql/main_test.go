package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const helperEnv = "GO_WANT_MAIN_HELPER"

// TestHelperProcess is a standard sub-process test helper.
// When invoked with GO_WANT_MAIN_HELPER=1, it will:
//  1. Strip arguments up to and including a literal "--" marker
//  2. Set os.Args to the remaining list (the CLI arguments)
//  3. Call main(), which exits with the command's status
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	args := os.Args
	sep := -1
	for i, a := range args {
		if a == "--" {
			sep = i
			break
		}
	}
	if sep >= 0 && sep+1 < len(args) {
		os.Args = append([]string{args[0]}, args[sep+1:]...)
	} else {
		os.Args = []string{args[0]}
	}
	main()
	os.Exit(0)
}

// runMainSubprocess runs the test binary in a separate process, invoking
// TestHelperProcess which calls main() with the provided arguments.
func runMainSubprocess(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--")
	cmd.Env = append(os.Environ(), helperEnv+"=1")
	cmd.Args = append(cmd.Args, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	var ee *exec.ExitError
	switch {
	case err == nil:
		code = 0
	case errors.As(err, &ee):
		code = ee.ExitCode()
	default:
		t.Fatalf("run helper: %v", err)
	}
	return outBuf.String(), errBuf.String(), code
}

// runCLI calls run in-process with an empty stdin.
func runCLI(args ...string) (stdout, stderr string, code int) {
	return runCLIWithStdin("", args...)
}

func runCLIWithStdin(stdin string, args ...string) (stdout, stderr string, code int) {
	var outBuf, errBuf bytes.Buffer
	code = run(context.Background(), args, strings.NewReader(stdin), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestMain_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("id,name\n1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	dump := filepath.Join("testdata", "dump.csv")

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{name: "ok", args: []string{dump, filepath.Join(dir, "ok.sql")}, wantCode: exitOK},
		{name: "help", args: []string{"--help"}, wantCode: exitOK},
		{name: "missing_args", args: []string{dump}, wantCode: exitUsage, wantErr: "OUTPUT_FILE"},
		{name: "extra_args", args: []string{dump, "-", "more"}, wantCode: exitUsage, wantErr: "unexpected arguments"},
		{name: "bad_format", args: []string{"--format", "xml", dump, "-"}, wantCode: exitUsage, wantErr: "xml"},
		{name: "bad_delimiter", args: []string{"-d", ";;", dump, "-"}, wantCode: exitUsage, wantErr: "single character"},
		{name: "missing_layout", args: []string{"-l", filepath.Join(dir, "none.yaml"), dump, "-"}, wantCode: exitUsage, wantErr: "opening layout"},
		{name: "missing_input", args: []string{filepath.Join(dir, "none.csv"), filepath.Join(dir, "x.sql")}, wantCode: exitInput, wantErr: "no such file"},
		{name: "parse_error", args: []string{bad, "-"}, wantCode: exitParse, wantErr: "line 2"},
		{name: "output_dir_missing", args: []string{dump, filepath.Join(dir, "no", "such", "dir.sql")}, wantCode: exitOutput, wantErr: "output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCLI(tt.args...)
			if code != tt.wantCode {
				t.Fatalf("exit=%d want %d (stderr=%q)", code, tt.wantCode, stderr)
			}
			if tt.wantErr == "" {
				return
			}
			if !strings.HasPrefix(stderr, progname+": ") || !strings.Contains(stderr, tt.wantErr) {
				t.Fatalf("stderr=%q want %q prefix and %q", stderr, progname+": ", tt.wantErr)
			}
			if strings.Count(stderr, "\n") != 1 {
				t.Fatalf("stderr spans several lines: %q", stderr)
			}
		})
	}
}

func TestMain_StdoutOutput(t *testing.T) {
	stdout, stderr, code := runCLI("--create", "--transaction", filepath.Join("testdata", "dump.csv"), "-")
	if code != exitOK {
		t.Fatalf("exit=%d stderr=%s", code, stderr)
	}
	want := strings.Join([]string{
		"BEGIN TRANSACTION;",
		"CREATE TABLE customers (id NUMERIC, name TEXT, note TEXT);",
		"INSERT INTO customers (id, name, note) VALUES (123, 'John O''Brien', NULL);",
		"INSERT INTO customers (id, name, note) VALUES (124, 'Ann', 'VIP');",
		"COMMIT;",
	}, "\n") + "\n"
	if stdout != want {
		t.Fatalf("stdout=\n%s\nwant\n%s", stdout, want)
	}
	if stderr != "" {
		t.Fatalf("quiet run wrote to stderr: %q", stderr)
	}
}

func TestMain_HelpGoesToStdout(t *testing.T) {
	stdout, _, code := runCLI("-h")
	if code != exitOK {
		t.Fatalf("exit=%d", code)
	}
	for _, want := range []string{"INPUT_FILE", "--create", "Include SQL CREATE TABLE commands"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("help lacks %q:\n%s", want, stdout)
		}
	}
}

func TestMain_VerboseLogsDigest(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.sql")
	_, stderr, code := runCLI("-v", filepath.Join("testdata", "dump.csv"), out)
	if code != exitOK {
		t.Fatalf("exit=%d stderr=%s", code, stderr)
	}
	if !strings.Contains(stderr, "xxh3=") || !strings.Contains(stderr, "statements=2") || !strings.Contains(stderr, "inserts=2") {
		t.Fatalf("verbose log=%q", stderr)
	}
}

func TestMain_TableWarningForCustRef(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(dump, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, stderr, code := runCLI("--format", "custref", "--table", "x", dump, "-")
	if code != exitOK {
		t.Fatalf("exit=%d stderr=%s", code, stderr)
	}
	if !strings.Contains(stderr, "warning at table") {
		t.Fatalf("stderr=%q want table warning", stderr)
	}
}

// TestMain_ProcessExitCode checks the status of the real process, including
// that no output file is created when the input is missing.
func TestMain_ProcessExitCode(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.sql")

	_, stderr, code := runMainSubprocess(t, filepath.Join(dir, "missing.csv"), out)
	if code != exitInput {
		t.Fatalf("exit=%d want %d (stderr=%q)", code, exitInput, stderr)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output file created for missing input: %v", err)
	}

	stdout, stderr, code := runMainSubprocess(t, filepath.Join("testdata", "dump.csv"), "-")
	if code != exitOK {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
	if strings.Count(stdout, "INSERT INTO customers") != 2 {
		t.Fatalf("stdout=%q", stdout)
	}
}

func TestMain_StdinInput(t *testing.T) {
	stdout, stderr, code := runCLIWithStdin("id,name\n7,x\n", "-", "-")
	if code != exitOK {
		t.Fatalf("exit=%d stderr=%s", code, stderr)
	}
	if want := "INSERT INTO customers (id, name) VALUES (7, 'x');\n"; stdout != want {
		t.Fatalf("stdout=%q want %q", stdout, want)
	}
}

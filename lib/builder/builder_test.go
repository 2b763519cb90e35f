// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trim21/bison-py/lib/fetch"
	"github.com/trim21/bison-py/lib/gnu"
	"github.com/trim21/bison-py/lib/testutil"
	"github.com/trim21/bison-py/lib/toolchain"
)

// recordingRunner records every command and fakes the side effects of
// "make install" so payload verification has something to look at.
type recordingRunner struct {
	t        *testing.T
	commands []toolchain.Command
	// installHook runs when a "make install" step is recorded, with
	// the prefix parsed from the preceding configure step.
	installHook func(prefix string)
	prefixes    []string
	failOn      string
}

func (r *recordingRunner) Run(_ context.Context, command toolchain.Command) error {
	r.commands = append(r.commands, command)
	if r.failOn != "" && strings.Contains(command.String(), r.failOn) {
		return fmt.Errorf("forced failure for %q", r.failOn)
	}
	if command.Name == "sh" {
		for _, arg := range command.Args {
			if prefix, ok := strings.CutPrefix(arg, "--prefix="); ok {
				r.prefixes = append(r.prefixes, prefix)
			}
		}
	}
	if command.Name == "make" && len(command.Args) == 1 && command.Args[0] == "install" {
		if r.installHook != nil && len(r.prefixes) > 0 {
			r.installHook(r.prefixes[len(r.prefixes)-1])
		}
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mirrorServer serves fake m4 and bison source tarballs.
func mirrorServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/m4/m4-1.4.19.tar.gz":
			w.Write(testutil.SourceTarball(t, "m4", "1.4.19"))
		case "/bison/bison-3.8.2.tar.gz":
			w.Write(testutil.SourceTarball(t, "bison", "3.8.2"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestBuilder(t *testing.T, runner toolchain.Runner, baseURL string) *Builder {
	t.Helper()
	cache, err := fetch.New(fetch.Config{Dir: t.TempDir(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("fetch.New: %v", err)
	}
	mirror := gnu.NewClient(gnu.Config{BaseURL: baseURL, Logger: quietLogger()})
	return New(runner, cache, mirror, quietLogger())
}

func defaultOptions(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	return Options{
		BisonVersion:  "3.8.2",
		M4Version:     "1.4.19",
		StageRoot:     filepath.Join(root, "stage"),
		Prefix:        filepath.Join(root, "payload"),
		TarballFormat: "gz",
	}
}

func TestBuildCommandSequence(t *testing.T) {
	server := mirrorServer(t)
	runner := &recordingRunner{t: t}
	runner.installHook = func(prefix string) {
		testutil.WritePayloadTree(t, prefix, "3.8.2")
	}
	b := newTestBuilder(t, runner, server.URL)
	options := defaultOptions(t)

	if err := b.Build(context.Background(), options); err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Six steps: configure/make/install for m4, then for bison.
	if len(runner.commands) != 6 {
		t.Fatalf("got %d commands: %v", len(runner.commands), runner.commands)
	}

	m4Configure := runner.commands[0]
	if m4Configure.Name != "sh" || m4Configure.Args[0] != "./configure" {
		t.Errorf("step 0 = %v, want m4 configure", m4Configure)
	}
	wantM4Args := []string{
		"--prefix=" + filepath.Join(options.StageRoot, "m4"),
		"--disable-dependency-tracking",
		"--enable-static",
		"--enable-shared",
	}
	for _, want := range wantM4Args {
		if !containsArg(m4Configure.Args, want) {
			t.Errorf("m4 configure missing %q: %v", want, m4Configure.Args)
		}
	}

	if got := runner.commands[1].Args; len(got) != 1 || got[0] != "-j4" {
		t.Errorf("m4 make args = %v, want [-j4]", got)
	}
	if got := runner.commands[2].Args; len(got) != 1 || got[0] != "install" {
		t.Errorf("m4 install args = %v", got)
	}

	bisonConfigure := runner.commands[3]
	for _, want := range []string{"--prefix=" + options.Prefix, "--disable-nls", "--enable-relocatable"} {
		if !containsArg(bisonConfigure.Args, want) {
			t.Errorf("bison configure missing %q: %v", want, bisonConfigure.Args)
		}
	}

	// The bison steps must see the staged m4 via PATH and M4.
	m4Bin := filepath.Join(options.StageRoot, "m4", "bin")
	var sawPath, sawM4 bool
	for _, envEntry := range bisonConfigure.Env {
		if strings.HasPrefix(envEntry, "PATH="+m4Bin+string(os.PathListSeparator)) {
			sawPath = true
		}
		if envEntry == "M4="+filepath.Join(m4Bin, "m4") {
			sawM4 = true
		}
	}
	if !sawPath {
		t.Errorf("bison configure env lacks staged-m4 PATH: %v", bisonConfigure.Env)
	}
	if !sawM4 {
		t.Errorf("bison configure env lacks M4: %v", bisonConfigure.Env)
	}

	// m4 steps must not carry the override.
	if len(m4Configure.Env) != 0 {
		t.Errorf("m4 configure has unexpected env: %v", m4Configure.Env)
	}
}

func TestBuildParallelOption(t *testing.T) {
	server := mirrorServer(t)
	runner := &recordingRunner{t: t}
	runner.installHook = func(prefix string) {
		testutil.WritePayloadTree(t, prefix, "3.8.2")
	}
	b := newTestBuilder(t, runner, server.URL)
	options := defaultOptions(t)
	options.Parallel = 16

	if err := b.Build(context.Background(), options); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := runner.commands[1].Args[0]; got != "-j16" {
		t.Errorf("make parallelism = %q, want -j16", got)
	}
}

func TestBuildStripPass(t *testing.T) {
	server := mirrorServer(t)
	runner := &recordingRunner{t: t}
	runner.installHook = func(prefix string) {
		testutil.WritePayloadTree(t, prefix, "3.8.2")
	}
	b := newTestBuilder(t, runner, server.URL)

	// Make a strip binary resolvable.
	toolDir := t.TempDir()
	testutil.WriteExecutable(t, toolDir, "strip", "#!/bin/sh\nexit 0\n")
	t.Setenv("PATH", toolDir+":/bin:/usr/bin")

	options := defaultOptions(t)
	options.Strip = true
	if err := b.Build(context.Background(), options); err != nil {
		t.Fatalf("Build: %v", err)
	}

	var stripped []string
	for _, command := range runner.commands {
		if command.Name == "strip" {
			stripped = append(stripped, filepath.Base(command.Args[0]))
		}
	}
	// bin/bison and bin/yacc from the fake payload.
	if len(stripped) != 2 {
		t.Errorf("stripped %v, want both staged binaries", stripped)
	}
}

func TestBuildFailsWhenConfigureFails(t *testing.T) {
	server := mirrorServer(t)
	runner := &recordingRunner{t: t, failOn: "./configure"}
	b := newTestBuilder(t, runner, server.URL)

	err := b.Build(context.Background(), defaultOptions(t))
	if err == nil {
		t.Fatal("Build succeeded despite configure failure")
	}
	if !strings.Contains(err.Error(), "m4 1.4.19") {
		t.Errorf("error does not name the failing project: %v", err)
	}
}

func TestBuildFailsWithoutPayload(t *testing.T) {
	server := mirrorServer(t)
	// No installHook: nothing stages a payload, verification must fail.
	runner := &recordingRunner{t: t}
	b := newTestBuilder(t, runner, server.URL)

	err := b.Build(context.Background(), defaultOptions(t))
	if err == nil {
		t.Fatal("Build succeeded with an empty payload")
	}
	if !strings.Contains(err.Error(), "bin/bison") {
		t.Errorf("error = %v", err)
	}
}

func TestBuildValidatesOptions(t *testing.T) {
	b := New(&recordingRunner{}, nil, nil, quietLogger())
	err := b.Build(context.Background(), Options{})
	if err == nil {
		t.Fatal("Build accepted empty options")
	}
	for _, want := range []string{"bison version", "m4 version", "stage root", "install prefix"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error missing %q: %v", want, err)
		}
	}
}

func TestVerifyPayloadRejectsNonExecutable(t *testing.T) {
	prefix := t.TempDir()
	testutil.WriteFile(t, prefix, "bin/bison", "not executable")
	if err := VerifyPayload(prefix); err == nil {
		t.Error("VerifyPayload accepted a non-executable bison")
	}
}

func containsArg(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

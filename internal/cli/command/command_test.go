package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/ssess-go/internal/core/crypt"
	"github.com/yndnr/ssess-go/internal/server/config"
	filestore "github.com/yndnr/ssess-go/internal/storage/file"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
)

const testSecret = "command-test-application-secret"

type env struct {
	configPath string
	dir        string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	sessions := filepath.Join(dir, "sessions")
	if err := os.MkdirAll(sessions, 0o700); err != nil {
		t.Fatal(err)
	}

	cfg := "crypto:\n  secret: " + testSecret + "\n" +
		"storage:\n  backend: file\n  dir: " + sessions + "\n" +
		"  redis:\n    password: hunter2-redis-password\n"
	path := filepath.Join(dir, "ssess.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return &env{configPath: path, dir: sessions}
}

// seed stores data for id the same way the server would.
func (e *env) seed(t *testing.T, id, data string) {
	t.Helper()
	def := config.Default()
	p, err := crypt.NewFromNames([]byte(testSecret), def.Crypto.Hash, def.Crypto.Cipher)
	if err != nil {
		t.Fatal(err)
	}
	s, err := filestore.New(filestore.Config{Dir: e.dir}, logger.Slog(logger.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	sealed, err := p.Encrypt(id, data)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), p.MakeIdentifier(id), sealed); err != nil {
		t.Fatal(err)
	}
}

type result struct {
	stdout, stderr string
	err            error
}

func (e *env) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"ssess-cli", "--config", e.configPath}, args...)
	err := app.Run(full)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

func TestApp_Commands(t *testing.T) {
	app := App()
	names := map[string]bool{}
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"keygen", "identifier", "inspect", "exists", "destroy", "gc", "config"} {
		if !names[want] {
			t.Errorf("missing command %q", want)
		}
	}

	flags := map[string]bool{}
	for _, f := range app.Flags {
		flags[f.Names()[0]] = true
	}
	for _, want := range []string{"config", "output", "verbose"} {
		if !flags[want] {
			t.Errorf("missing global flag %q", want)
		}
	}
}

func TestApp_RejectsUnknownOutput(t *testing.T) {
	e := newEnv(t)
	if r := e.run(t, "", "--output", "xml", "keygen"); r.err == nil {
		t.Error("expected an error for --output xml")
	}
}

func TestKeygen(t *testing.T) {
	e := newEnv(t)

	r := e.run(t, "", "keygen")
	if r.err != nil {
		t.Fatalf("keygen error = %v", r.err)
	}
	if got := strings.TrimSpace(r.stdout); len(got) != 43 {
		t.Errorf("secret %q has length %d, want 43", got, len(got))
	}

	r = e.run(t, "", "-o", "json", "keygen", "--length", "48")
	var res keygenResult
	if err := json.Unmarshal([]byte(r.stdout), &res); err != nil {
		t.Fatalf("decode: %v (%q)", err, r.stdout)
	}
	if res.Bytes != 48 || len(res.Secret) != 64 {
		t.Errorf("result = %+v", res)
	}

	if r := e.run(t, "", "keygen", "--length", "8"); exitCode(r.err) != 2 {
		t.Errorf("short length exit = %d, want 2", exitCode(r.err))
	}
}

func TestIdentifier(t *testing.T) {
	e := newEnv(t)
	def := config.Default()
	p, _ := crypt.NewFromNames([]byte(testSecret), def.Crypto.Hash, def.Crypto.Cipher)

	r := e.run(t, "", "-o", "yaml", "identifier", "ssid-abc")
	if r.err != nil {
		t.Fatalf("identifier error = %v", r.err)
	}
	var res identifierResult
	if err := yaml.Unmarshal([]byte(r.stdout), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Identifier != p.MakeIdentifier("ssid-abc") {
		t.Errorf("identifier = %q, want %q", res.Identifier, p.MakeIdentifier("ssid-abc"))
	}

	if r := e.run(t, "", "identifier"); exitCode(r.err) != 2 {
		t.Errorf("missing argument exit = %d, want 2", exitCode(r.err))
	}
}

func TestInspect(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "ssid-known", `{"user":"alice"}`)

	r := e.run(t, "", "-o", "json", "inspect", "ssid-known")
	if r.err != nil {
		t.Fatalf("inspect error = %v", r.err)
	}
	var res inspectResult
	if err := json.Unmarshal([]byte(r.stdout), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Exists || res.Data != `{"user":"alice"}` || res.Error != "" {
		t.Errorf("result = %+v", res)
	}

	r = e.run(t, "", "inspect", "ssid-missing")
	if r.err != nil {
		t.Fatalf("inspect missing error = %v", r.err)
	}
	if !strings.Contains(r.stdout, "exists") || !strings.Contains(r.stdout, "false") {
		t.Errorf("table output = %q", r.stdout)
	}
}

func TestExists(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "ssid-known", "x")

	r := e.run(t, "", "-o", "json", "exists", "ssid-known")
	if r.err != nil {
		t.Fatalf("exists error = %v", r.err)
	}
	if !strings.Contains(r.stdout, "true") {
		t.Errorf("output = %q", r.stdout)
	}

	r = e.run(t, "", "-o", "json", "exists", "ssid-missing")
	if exitCode(r.err) != 1 {
		t.Errorf("exit = %d, want 1", exitCode(r.err))
	}
	if !strings.Contains(r.stdout, "false") {
		t.Errorf("output = %q", r.stdout)
	}
}

func TestDestroy(t *testing.T) {
	tests := []struct {
		name      string
		stdin     string
		args      []string
		wantExit  int
		wantAfter bool
	}{
		{"forced", "", []string{"--force"}, 0, false},
		{"confirmed", "y\n", nil, 0, false},
		{"declined", "n\n", nil, 1, true},
		{"no input", "", nil, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.seed(t, "ssid-victim", "x")

			args := append([]string{"destroy"}, tt.args...)
			args = append(args, "ssid-victim")
			r := e.run(t, tt.stdin, args...)
			if got := exitCode(r.err); got != tt.wantExit {
				t.Fatalf("exit = %d (%v), want %d", got, r.err, tt.wantExit)
			}

			r = e.run(t, "", "exists", "ssid-victim")
			if got := exitCode(r.err) == 0; got != tt.wantAfter {
				t.Errorf("exists after destroy = %v, want %v", got, tt.wantAfter)
			}
		})
	}
}

func TestDestroy_Missing(t *testing.T) {
	e := newEnv(t)
	r := e.run(t, "", "destroy", "--force", "ssid-missing")
	if exitCode(r.err) != 1 {
		t.Errorf("exit = %d, want 1", exitCode(r.err))
	}
}

func TestGC(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "ssid-a", "x")
	e.seed(t, "ssid-b", "y")

	r := e.run(t, "", "-o", "json", "gc")
	if r.err != nil {
		t.Fatalf("gc error = %v", r.err)
	}
	var res gcResult
	if err := json.Unmarshal([]byte(r.stdout), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Removed != 0 || res.MaxLife != config.DefaultMaxLife {
		t.Errorf("default gc result = %+v", res)
	}

	r = e.run(t, "", "-o", "json", "gc", "--max-life", "0")
	if err := json.Unmarshal([]byte(r.stdout), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Removed != 2 {
		t.Errorf("removed = %d, want 2", res.Removed)
	}

	if r := e.run(t, "", "gc", "--max-life", "-1"); exitCode(r.err) != 2 {
		t.Errorf("negative max-life exit = %d, want 2", exitCode(r.err))
	}
}

func TestConfigShow(t *testing.T) {
	e := newEnv(t)

	r := e.run(t, "", "config", "show")
	if r.err != nil {
		t.Fatalf("config show error = %v", r.err)
	}
	for _, want := range []string{"session.cookie_name", "storage.backend", "file", "session.gc_interval", "1m0s"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("output missing %q", want)
		}
	}
	for _, secret := range []string{testSecret, "hunter2-redis-password"} {
		if strings.Contains(r.stdout, secret) {
			t.Errorf("output leaks %q", secret)
		}
	}

	r = e.run(t, "", "-o", "yaml", "config", "show")
	var tree map[string]any
	if err := yaml.Unmarshal([]byte(r.stdout), &tree); err != nil {
		t.Fatalf("yaml output: %v", err)
	}
	if _, ok := tree["session"].(map[string]any); !ok {
		t.Errorf("yaml output lacks session section: %v", tree)
	}
}

func TestConfigValidate(t *testing.T) {
	e := newEnv(t)

	r := e.run(t, "", "config", "validate")
	if r.err != nil || strings.TrimSpace(r.stdout) != "OK" {
		t.Fatalf("validate = %q, %v", r.stdout, r.err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	content := "session:\n  use_strict_mode: false\n  gc_probability: 3\nstorage:\n  backend: tape\n"
	if err := os.WriteFile(bad, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	e.configPath = bad

	r = e.run(t, "", "config", "validate")
	if exitCode(r.err) != 1 {
		t.Fatalf("exit = %d, want 1", exitCode(r.err))
	}
	msg := r.err.Error()
	for _, want := range []string{"use_strict_mode", "gc_probability", "storage.backend", "crypto.secret"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

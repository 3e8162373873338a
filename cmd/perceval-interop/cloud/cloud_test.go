// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/lib/config"
	"github.com/Quandela/Perceval-Interop/lib/token"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// installConfig writes a config file rooted in temp directories, points
// PCVL_INTEROP_CONFIG at it, and clears the token environment variable
// so connect() sees exactly the sources the test sets up.
func installConfig(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	content := fmt.Sprintf("paths:\n  config_dir: %s\n  data_dir: %s\n",
		filepath.Join(dir, "config"), filepath.Join(dir, "data"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvConfigPath, path)
	t.Setenv(token.EnvToken, "")
}

func TestTokenStorePaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ConfigDir = "/cfg"
	cfg.Cloud.TokenFile = "/ci/token.txt"

	store := TokenStore(cfg)
	if store.SealedPath != "/cfg/token.age" {
		t.Errorf("SealedPath = %q", store.SealedPath)
	}
	if store.IdentityPath != "/cfg/identity.key" {
		t.Errorf("IdentityPath = %q", store.IdentityPath)
	}
	if store.PlainPath != "/ci/token.txt" {
		t.Errorf("PlainPath = %q", store.PlainPath)
	}
}

func TestSessionPlatformName(t *testing.T) {
	session := &Session{Config: config.Default()}

	if got := session.PlatformName(""); got != "sim:ascella" {
		t.Errorf("PlatformName(\"\") = %q, want the configured default", got)
	}
	if got := session.PlatformName("qpu:belenos"); got != "qpu:belenos" {
		t.Errorf("PlatformName(flag) = %q, want the flag value", got)
	}
}

func TestConnectionAddFlags(t *testing.T) {
	var conn Connection
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	conn.AddFlags(flagSet)

	if err := flagSet.Parse([]string{"--url", "http://localhost:9999", "--platform", "sim:slos"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if conn.URL != "http://localhost:9999" {
		t.Errorf("URL = %q", conn.URL)
	}
	if conn.Platform != "sim:slos" {
		t.Errorf("Platform = %q", conn.Platform)
	}
}

func TestConnectRequiresToken(t *testing.T) {
	installConfig(t)

	var conn Connection
	if _, err := conn.Connect(discardLogger()); !errors.Is(err, token.ErrNotFound) {
		t.Errorf("Connect() without a token = %v, want ErrNotFound", err)
	}
}

func TestConnectPublicToleratesMissingToken(t *testing.T) {
	installConfig(t)

	var requestPath, authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestPath = request.URL.Path
		authHeader = request.Header.Get("Authorization")
		fmt.Fprint(writer, `{"name": "sim:ascella", "status": "available"}`)
	}))
	defer server.Close()

	conn := Connection{URL: server.URL}
	session, err := conn.ConnectPublic(discardLogger())
	if err != nil {
		t.Fatalf("ConnectPublic() error: %v", err)
	}
	if session.TokenSource != "" {
		t.Errorf("TokenSource = %q, want empty without a token", session.TokenSource)
	}

	// The --url value reaches the client.
	if _, err := session.Client.PlatformDetails(context.Background(), "sim:ascella"); err != nil {
		t.Fatalf("PlatformDetails() error: %v", err)
	}
	if requestPath != "/api/v1/platform/sim:ascella" {
		t.Errorf("request path = %q", requestPath)
	}
	if authHeader != "" {
		t.Errorf("unauthenticated request carries Authorization %q", authHeader)
	}
}

func TestConnectResolvesEnvironmentToken(t *testing.T) {
	installConfig(t)
	t.Setenv(token.EnvToken, "tok-env-789")

	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		authHeader = request.Header.Get("Authorization")
		fmt.Fprint(writer, `{"name": "sim:ascella"}`)
	}))
	defer server.Close()

	conn := Connection{URL: server.URL}
	session, err := conn.Connect(discardLogger())
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if session.TokenSource != token.SourceEnvironment {
		t.Errorf("TokenSource = %q, want %q", session.TokenSource, token.SourceEnvironment)
	}

	if _, err := session.Client.PlatformDetails(context.Background(), "sim:ascella"); err != nil {
		t.Fatalf("PlatformDetails() error: %v", err)
	}
	if authHeader != "Bearer tok-env-789" {
		t.Errorf("Authorization = %q", authHeader)
	}
}

func TestConnectCreatesConfiguredDirectories(t *testing.T) {
	installConfig(t)
	t.Setenv(token.EnvToken, "tok")

	var conn Connection
	session, err := conn.Connect(discardLogger())
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	for _, dir := range []string{session.Config.Paths.ConfigDir, session.Config.Paths.DataDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}

	// The ledger is usable immediately: EnsurePaths made its directory.
	if _, err := session.Ledger.List(); err != nil {
		t.Errorf("List() on fresh ledger: %v", err)
	}
}

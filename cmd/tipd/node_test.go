package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tipchain/config"
	"tipchain/crypto"
	gatewayconfig "tipchain/gateway/config"
)

func testAddr(b byte) string {
	var raw [20]byte
	raw[19] = b
	return crypto.FromRaw(raw).String()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	genesisPath := filepath.Join(dir, "genesis.json")
	body := `{
  "genesisTime": "2025-01-01T00:00:00Z",
  "platform": {
    "authority": "` + testAddr(0xA0) + `",
    "feeCollector": "` + testAddr(0xFE) + `",
    "platformFeeBps": 100,
    "minTipAmount": "1"
  },
  "alloc": {"` + testAddr(0x02) + `": "1000"}
}`
	if err := os.WriteFile(genesisPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	return &config.Config{
		DataDir:     dir,
		GenesisFile: genesisPath,
		EventLogDir: filepath.Join(dir, "events"),
		Indexer:     config.Indexer{DSN: "file:" + filepath.Join(dir, "index.db")},
		DevFaucet:   config.DevFaucet{Enabled: true, Amount: "77"},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenNodeBootstrapsGenesisOnce(t *testing.T) {
	cfg := testConfig(t)

	n, err := openNode(cfg, quietLogger())
	if err != nil {
		t.Fatalf("open node: %v", err)
	}
	root := n.ledger.Root()
	platform, err := n.ledger.Platform(context.Background())
	if err != nil {
		t.Fatalf("platform: %v", err)
	}
	if platform.PlatformFeeBps != 100 {
		t.Fatalf("unexpected fee %d", platform.PlatformFeeBps)
	}
	n.Close()

	// A broken genesis file must not matter once state exists.
	if err := os.WriteFile(cfg.GenesisFile, []byte("{"), 0o600); err != nil {
		t.Fatalf("rewrite genesis: %v", err)
	}
	n, err = openNode(cfg, quietLogger())
	if err != nil {
		t.Fatalf("reopen node: %v", err)
	}
	defer n.Close()
	if n.ledger.Root() != root {
		t.Fatalf("root changed across restart")
	}
}

func TestOpenNodeRequiresGenesisFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.GenesisFile = ""
	if _, err := openNode(cfg, quietLogger()); err == nil {
		t.Fatalf("expected empty db without genesis to fail")
	}
}

func TestNodeHandlerServesRoutes(t *testing.T) {
	cfg := testConfig(t)
	n, err := openNode(cfg, quietLogger())
	if err != nil {
		t.Fatalf("open node: %v", err)
	}
	defer n.Close()

	gw := gatewayconfig.Default()
	gw.Auth.Enabled = false
	handler, err := n.handler(cfg, gw)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	for _, path := range []string{"/healthz", "/v1/platform", "/v1/leaderboard/creators", "/metrics"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, res.Code, res.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/dev/faucet", nil)
	req.Header.Set("X-Tip-Caller", testAddr(0x09))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("faucet: expected 200, got %d: %s", res.Code, res.Body.String())
	}
}

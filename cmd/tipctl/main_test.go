package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"tipchain/crypto"
	"tipchain/gateway/middleware"
)

func TestTipCommandPostsJSON(t *testing.T) {
	var gotBody map[string]string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/tips" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"txId":"abc","net":"975"}`))
	}))
	defer server.Close()

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-gateway", server.URL, "-token", "tok",
		"tip", "-handle", "alice", "-amount", "1000", "-message", "gm",
	}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["handle"] != "alice" || gotBody["amount"] != "1000" || gotBody["message"] != "gm" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	if !strings.Contains(out.String(), `"txId": "abc"`) {
		t.Fatalf("expected pretty output, got %s", out.String())
	}
}

func TestUpdateCreatorSendsOnlySetFields(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/v1/creators/alice" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	if err := run(context.Background(), []string{"-gateway", server.URL, "update-creator", "-handle", "alice", "-avatar", ""}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := gotBody["displayName"]; ok {
		t.Fatalf("display name should not be sent: %v", gotBody)
	}
	if v, ok := gotBody["avatarUri"]; !ok || v != "" {
		t.Fatalf("avatar should be sent as empty string: %v", gotBody)
	}
}

func TestGatewayErrorsSurface(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusLocked)
		_, _ = w.Write([]byte(`{"error":"tipping: platform is paused"}`))
	}))
	defer server.Close()

	err := run(context.Background(), []string{"-gateway", server.URL, "tip", "-handle", "a", "-amount", "1"}, &bytes.Buffer{})
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusLocked || !strings.Contains(apiErr.Message, "paused") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestKeygenAndToken(t *testing.T) {
	t.Setenv(passphraseEnv, "correct horse")
	t.Setenv("TIP_GATEWAY_SECRET", "secret")
	path := filepath.Join(t.TempDir(), "me.keystore")

	var out bytes.Buffer
	if err := run(context.Background(), []string{"keygen", "-out", path}, &out); err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if err := run(context.Background(), []string{"keygen", "-out", path}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected keygen to refuse overwriting")
	}

	out.Reset()
	if err := run(context.Background(), []string{"address", "-keystore", path}, &out); err != nil {
		t.Fatalf("address: %v", err)
	}
	address := strings.TrimSpace(out.String())
	caller, err := crypto.ParseAccount(address)
	if err != nil {
		t.Fatalf("parse printed address %q: %v", address, err)
	}

	out.Reset()
	if err := run(context.Background(), []string{"token", "-keystore", path}, &out); err != nil {
		t.Fatalf("token: %v", err)
	}
	token := strings.TrimSpace(out.String())

	auth := middleware.NewAuthenticator(middleware.AuthConfig{Enabled: true, HMACSecret: "secret"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/tips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ := middleware.CallerFrom(r.Context())
		if got != caller {
			t.Fatalf("token subject %x != keystore address %x", got, caller)
		}
	})).ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("token rejected: %d %s", res.Code, res.Body.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"frobnicate"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected unknown command error")
	}
}

package googleapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/casepro/gmailbot/internal/googleauth"
)

func testKeyJSON(t *testing.T, tokenURL string) []byte {
	t.Helper()

	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(pk)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	data, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"private_key":  string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email": "bot@p.iam.gserviceaccount.com",
		"client_id":    "42",
		"token_uri":    tokenURL,
	})
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return data
}

func newTokenServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"unauthorized_client"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewSheets_UsesDelegatedToken(t *testing.T) {
	tokenSrv := newTokenServer(t, http.StatusOK)

	var gotAuth, gotPath string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "s1"})
	}))
	defer api.Close()

	svc, err := NewSheets(context.Background(), Delegation{
		KeyJSON: testKeyJSON(t, tokenSrv.URL),
		Subject: "admin@example.com",
	}, option.WithEndpoint(api.URL+"/"))
	if err != nil {
		t.Fatalf("NewSheets: %v", err)
	}

	resp, err := svc.Spreadsheets.Get("s1").Do()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.SpreadsheetId != "s1" {
		t.Fatalf("unexpected id: %q", resp.SpreadsheetId)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if !strings.HasSuffix(gotPath, "/spreadsheets/s1") {
		t.Fatalf("unexpected path: %q", gotPath)
	}
}

func TestNewGmail_DelegationDenied(t *testing.T) {
	tokenSrv := newTokenServer(t, http.StatusUnauthorized)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("API should not be reached without a token")
	}))
	defer api.Close()

	svc, err := NewGmail(context.Background(), Delegation{
		KeyJSON: testKeyJSON(t, tokenSrv.URL),
		Subject: "admin@example.com",
		Scopes:  []string{"https://www.googleapis.com/auth/gmail.readonly"},
	}, option.WithEndpoint(api.URL+"/"))
	if err != nil {
		t.Fatalf("NewGmail: %v", err)
	}

	_, err = svc.Users.GetProfile("me").Do()
	var derr *googleauth.DelegationError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DelegationError, got %T: %v", err, err)
	}
	if derr.Reason() != "unauthorized_client" {
		t.Fatalf("unexpected reason: %q", derr.Reason())
	}
}

func TestNewSheets_Validation(t *testing.T) {
	if _, err := NewSheets(context.Background(), Delegation{Subject: "a@b.com"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewSheets(context.Background(), Delegation{KeyJSON: []byte("{}")}); err == nil {
		t.Fatalf("expected missing subject error")
	}
}

func TestTraceTransport_LogsWithoutSecrets(t *testing.T) {
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(orig) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := &http.Client{Transport: WrapTrace(nil)}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/v4/spreadsheets/s1", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer super-secret")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	_ = resp.Body.Close()

	out := buf.String()
	if !strings.Contains(out, "http request") || !strings.Contains(out, "status=418") {
		t.Fatalf("unexpected trace output: %q", out)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("trace leaked the bearer token: %q", out)
	}
}

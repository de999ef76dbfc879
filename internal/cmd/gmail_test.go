package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/casepro/gmailbot/internal/googleapi"
)

func useFakeGmail(t *testing.T, h http.HandlerFunc) *googleapi.Delegation {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	got := &googleapi.Delegation{}
	orig := newGmailService
	t.Cleanup(func() { newGmailService = orig })
	newGmailService = func(ctx context.Context, d googleapi.Delegation, _ ...option.ClientOption) (*gmail.Service, error) {
		*got = d
		return gmail.NewService(ctx,
			option.WithoutAuthentication(),
			option.WithHTTPClient(srv.Client()),
			option.WithEndpoint(srv.URL+"/"),
		)
	}
	return got
}

func gmailJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func gmailMessage(id string) map[string]any {
	return map[string]any{
		"id":           id,
		"threadId":     "t-" + id,
		"snippet":      "snippet " + id,
		"internalDate": "1736899200000",
		"payload": map[string]any{"headers": []map[string]any{
			{"name": "From", "value": "Ada <ada@example.com>"},
			{"name": "Subject", "value": "Hello " + id},
		}},
	}
}

func TestGmailProfile_ImpersonatesSubject(t *testing.T) {
	store := isolate(t)
	_ = store.SetKey(testClientEmail, secretFor(t, testClientEmail))
	d := useFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		gmailJSON(w, map[string]any{"emailAddress": "praveen@casepro.club", "messagesTotal": 3, "threadsTotal": 2, "historyId": "10"})
	})

	out, _, err := run(t, "--json", "gmail", "profile")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if d.Subject != "praveen@casepro.club" {
		t.Fatalf("subject=%q", d.Subject)
	}
	var p struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal([]byte(out), &p); err != nil || p.Email != "praveen@casepro.club" {
		t.Fatalf("unexpected output %q (%v)", out, err)
	}
}

func TestGmailLabels_Table(t *testing.T) {
	store := isolate(t)
	_ = store.SetKey(testClientEmail, secretFor(t, testClientEmail))
	useFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		gmailJSON(w, map[string]any{"labels": []map[string]any{{"id": "Label_1", "name": "Leads", "type": "user"}}})
	})

	out, _, err := run(t, "gmail", "labels")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Label_1") || !strings.Contains(out, "Leads") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestGmailSearch(t *testing.T) {
	store := isolate(t)
	_ = store.SetKey(testClientEmail, secretFor(t, testClientEmail))
	useFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/messages") {
			if got := r.URL.Query().Get("q"); got != "is:unread" {
				t.Errorf("q=%q", got)
			}
			gmailJSON(w, map[string]any{"messages": []map[string]any{{"id": "m1"}, {"id": "m2"}}})
			return
		}
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		gmailJSON(w, gmailMessage(id))
	})

	out, _, err := run(t, "--plain", "gmail", "search", "is:unread", "--max", "5")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Hello m1") || !strings.Contains(out, "Hello m2") {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Index(out, "m1") > strings.Index(out, "m2") {
		t.Fatalf("expected list order: %q", out)
	}

	if _, _, err := run(t, "gmail", "search", "x", "--max", "0"); err == nil || ExitCode(err) != 2 {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestGmailGet_NotFound(t *testing.T) {
	store := isolate(t)
	_ = store.SetKey(testClientEmail, secretFor(t, testClientEmail))
	useFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	})

	_, errText, err := run(t, "gmail", "get", "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(errText, "missing") {
		t.Fatalf("unexpected stderr: %q", errText)
	}
}

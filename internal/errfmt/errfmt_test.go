package errfmt

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"
	ggoogleapi "google.golang.org/api/googleapi"

	"github.com/casepro/gmailbot/internal/config"
	"github.com/casepro/gmailbot/internal/googleauth"
)

var errNope = errors.New("nope")

func TestFormat_Nil(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestFormat_DelegationDenied(t *testing.T) {
	err := &googleauth.DelegationError{
		Subject:  "admin@example.com",
		ClientID: "1234",
		Scopes:   []string{"s1", "s2"},
		Cause: &oauth2.RetrieveError{
			Response: &http.Response{StatusCode: http.StatusUnauthorized},
			Body:     []byte(`{"error":"unauthorized_client"}`),
		},
	}
	got := Format(fmt.Errorf("get spreadsheet: %w", err))

	if !containsAll(got, "admin@example.com", "unauthorized_client", "1234", "s1,s2", "Domain-wide delegation") {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestFormat_DelegationOtherFailure(t *testing.T) {
	err := &googleauth.DelegationError{Subject: "admin@example.com", Cause: &oauth2.RetrieveError{
		Response: &http.Response{Status: "500 Internal Server Error", StatusCode: 500},
		Body:     []byte("oops"),
	}}
	got := Format(err)
	if strings.Contains(got, "Admin console") || !strings.Contains(got, "failed") {
		t.Fatalf("unexpected hint: %q", got)
	}
}

func TestFormat_CredentialsMissing(t *testing.T) {
	err := &config.CredentialsMissingError{Path: "/tmp/creds.json", Cause: errNope}
	got := Format(err)

	if !containsAll(got, "gmailbot auth import", "/tmp/creds.json", config.EnvCredentials) {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestFormat_KeyNotFound(t *testing.T) {
	got := Format(keyring.ErrKeyNotFound)
	if !containsAll(got, "not found in keyring", "gmailbot auth import") {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestFormat_RetrieveError(t *testing.T) {
	got := Format(&oauth2.RetrieveError{ErrorCode: "invalid_grant", ErrorDescription: "Invalid JWT Signature."})
	if !containsAll(got, "invalid_grant", "Invalid JWT Signature.") {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestFormat_NotExist(t *testing.T) {
	err := fmt.Errorf("open key.json: %w", os.ErrNotExist)
	if got := Format(err); got != err.Error() {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestFormat_GoogleAPIError(t *testing.T) {
	err := &ggoogleapi.Error{
		Code:    403,
		Message: "nope",
		Errors: []ggoogleapi.ErrorItem{
			{Reason: "insufficientPermissions"},
		},
	}
	got := Format(err)

	if !containsAll(got, "403", "insufficientPermissions", "nope") {
		t.Fatalf("unexpected: %q", got)
	}

	got = Format(&ggoogleapi.Error{Code: 404, Message: "Requested entity was not found."})
	if got != "Google API error (404): Requested entity was not found." {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestFormat_Plain(t *testing.T) {
	if got := Format(errNope); got != "nope" {
		t.Fatalf("unexpected: %q", got)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

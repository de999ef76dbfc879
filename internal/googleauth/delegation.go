package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// DelegationError is returned when the token endpoint refuses to mint a token
// for the service account acting as Subject. The usual cause is a client id
// that was never authorized for these scopes in the Workspace admin console.
type DelegationError struct {
	Subject  string
	ClientID string
	Scopes   []string
	Cause    error
}

func (e *DelegationError) Error() string {
	if r := e.Reason(); r != "" {
		return fmt.Sprintf("delegation as %s denied: %s", e.Subject, r)
	}
	return fmt.Sprintf("delegation as %s failed: %v", e.Subject, e.Cause)
}

func (e *DelegationError) Unwrap() error {
	return e.Cause
}

// Reason is the OAuth error code from the token endpoint, if any.
func (e *DelegationError) Reason() string {
	var rerr *oauth2.RetrieveError
	if !errors.As(e.Cause, &rerr) {
		return ""
	}
	if rerr.ErrorCode != "" {
		return rerr.ErrorCode
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(rerr.Body, &body) == nil {
		return body.Error
	}
	return ""
}

// DelegatedConfig builds the JWT bearer config for impersonating subject.
func DelegatedConfig(keyJSON []byte, subject string, scopes []string) (*jwt.Config, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, errors.New("missing delegation subject")
	}
	if len(scopes) == 0 {
		return nil, errors.New("missing scopes")
	}
	cfg, err := google.JWTConfigFromJSON(keyJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	cfg.Subject = subject
	return cfg, nil
}

func DelegatedTokenSource(ctx context.Context, keyJSON []byte, subject string, scopes []string) (oauth2.TokenSource, error) {
	cfg, err := DelegatedConfig(keyJSON, subject, scopes)
	if err != nil {
		return nil, err
	}
	key, err := ParseKey(keyJSON)
	if err != nil {
		return nil, err
	}
	slog.Debug("delegated credentials", "client", key.ClientEmail, "subject", cfg.Subject, "scopes", strings.Join(cfg.Scopes, " "))
	return &delegatedSource{
		src:      cfg.TokenSource(ctx),
		subject:  cfg.Subject,
		clientID: key.ClientID,
		scopes:   cfg.Scopes,
	}, nil
}

type delegatedSource struct {
	src      oauth2.TokenSource
	subject  string
	clientID string
	scopes   []string
}

func (s *delegatedSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err == nil {
		return tok, nil
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return nil, &DelegationError{Subject: s.subject, ClientID: s.clientID, Scopes: s.scopes, Cause: err}
	}
	return nil, err
}

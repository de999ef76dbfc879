package errfmt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"
	ggoogleapi "google.golang.org/api/googleapi"

	"github.com/casepro/gmailbot/internal/config"
	"github.com/casepro/gmailbot/internal/googleauth"
)

func Format(err error) string {
	if err == nil {
		return ""
	}

	var delegErr *googleauth.DelegationError
	if errors.As(err, &delegErr) {
		return formatDelegationError(delegErr)
	}

	var credErr *config.CredentialsMissingError
	if errors.As(err, &credErr) {
		return fmt.Sprintf("Service account key missing (looked for %s). Run: gmailbot auth import <key.json>, or set %s", credErr.Path, config.EnvCredentials)
	}

	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "Service account key not found in keyring. Run: gmailbot auth import <key.json>"
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.ErrorCode != "" {
			return fmt.Sprintf("Token request failed (%s): %s", rerr.ErrorCode, rerr.ErrorDescription)
		}
		return fmt.Sprintf("Token request failed: %s", strings.TrimSpace(string(rerr.Body)))
	}

	if errors.Is(err, os.ErrNotExist) {
		return err.Error()
	}

	var gerr *ggoogleapi.Error
	if errors.As(err, &gerr) {
		reason := ""
		if len(gerr.Errors) > 0 && gerr.Errors[0].Reason != "" {
			reason = gerr.Errors[0].Reason
		}

		if reason != "" {
			return fmt.Sprintf("Google API error (%d %s): %s", gerr.Code, reason, gerr.Message)
		}

		return fmt.Sprintf("Google API error (%d): %s", gerr.Code, gerr.Message)
	}

	return err.Error()
}

// formatDelegationError points at the admin console setting that most often
// causes unauthorized_client.
func formatDelegationError(err *googleauth.DelegationError) string {
	msg := err.Error()
	if err.Reason() != "unauthorized_client" && err.Reason() != "access_denied" {
		return msg
	}
	clientID := err.ClientID
	if clientID == "" {
		clientID = "<client id>"
	}
	return fmt.Sprintf("%s\nAuthorize client %s for scopes %s in Admin console > Security > API controls > Domain-wide delegation",
		msg, clientID, strings.Join(err.Scopes, ","))
}

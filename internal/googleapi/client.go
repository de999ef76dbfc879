package googleapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/casepro/gmailbot/internal/googleauth"
)

// Delegation is everything needed to act as Subject through a service account.
type Delegation struct {
	KeyJSON []byte
	Subject string
	Scopes  []string
	Trace   bool
}

func (d Delegation) validate() error {
	if len(d.KeyJSON) == 0 {
		return errors.New("missing service account key")
	}
	if strings.TrimSpace(d.Subject) == "" {
		return errors.New("missing delegation subject")
	}
	return nil
}

func optionsForDelegation(ctx context.Context, d Delegation, extra []option.ClientOption) ([]option.ClientOption, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	scopes := d.Scopes
	if len(scopes) == 0 {
		scopes = googleauth.DefaultScopes()
	}
	ts, err := googleauth.DelegatedTokenSource(ctx, d.KeyJSON, d.Subject, scopes)
	if err != nil {
		return nil, err
	}

	var base http.RoundTripper = http.DefaultTransport
	if d.Trace {
		base = WrapTrace(base)
	}
	client := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base:   base,
		},
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	return append(opts, extra...), nil
}

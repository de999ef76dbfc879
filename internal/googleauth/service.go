package googleauth

import (
	"fmt"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/sheets/v4"
)

type Service string

const (
	ServiceSheets Service = "sheets"
	ServiceGmail  Service = "gmail"
)

// AllServices lists the services a delegated token is minted for, in the
// order their scopes are requested.
func AllServices() []Service {
	return []Service{ServiceSheets, ServiceGmail}
}

func Scopes(service Service) ([]string, error) {
	switch service {
	case ServiceSheets:
		return []string{sheets.SpreadsheetsScope}, nil
	case ServiceGmail:
		return []string{gmail.GmailReadonlyScope}, nil
	default:
		return nil, fmt.Errorf("unknown service %q", service)
	}
}

// DefaultScopes is the scope list requested for every delegated token:
// spreadsheets read-write, then Gmail read-only.
func DefaultScopes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, svc := range AllServices() {
		scopes, err := Scopes(svc)
		if err != nil {
			panic(err) // AllServices and Scopes are out of sync
		}
		for _, s := range scopes {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

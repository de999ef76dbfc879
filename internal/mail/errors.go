package mail

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

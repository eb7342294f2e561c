package sheets

import (
	"errors"

	"google.golang.org/api/googleapi"
)

func isGoogleAPIStatus(err error, code int) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == code
	}
	return false
}

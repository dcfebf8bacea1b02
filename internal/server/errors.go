package server

import (
	"net/http"
	"strings"

	apperrors "github.com/vhdlcheck/vhdlcheck/internal/errors"
	servermw "github.com/vhdlcheck/vhdlcheck/internal/server/middleware"
)

// HandleError central handler for all errors. /api routes get the
// {success:false,error} body; everything else gets the error envelope.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if r != nil && strings.HasPrefix(r.URL.Path, servermw.APIPrefix) {
		apperrors.RespondWithAPIError(w, r, err)
		return
	}
	apperrors.RespondWithError(w, r, err)
}

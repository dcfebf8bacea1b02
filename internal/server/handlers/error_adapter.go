package handlers

import (
	"net/http"

	apperrors "github.com/vhdlcheck/vhdlcheck/internal/errors"
)

// ErrorResponder writes an error response for a failed handler.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var errorResponder ErrorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder installs the server's error responder so handlers
// share its API and envelope formats. Nil restores the envelope responder.
func SetHTTPErrorResponder(responder ErrorResponder) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	errorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponder(w, r, err)
}

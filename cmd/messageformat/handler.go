package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pitabwire/util"

	"github.com/pitabwire/messageformat"
	"github.com/pitabwire/messageformat/catalog"
	"github.com/pitabwire/messageformat/localization"
)

type messageResponse struct {
	Key     string `json:"key"`
	Locale  string `json:"locale"`
	Message string `json:"message"`
}

type localesResponse struct {
	Default string   `json:"default"`
	Locales []string `json:"locales"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// newHandler serves formatted messages. The languages are expected in the
// request context, see localization/interceptors/http.
//
//	GET /messages/{key}?arg=Alpha&arg=3  formatted message
//	GET /messages/{key}?raw=true         template without formatting
//	GET /locales                         supported locales
func newHandler(registry *localization.Registry) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /locales", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, localesResponse{
			Default: registry.DefaultLocale(),
			Locales: registry.Locales(),
		})
	})

	mux.HandleFunc("GET /messages/{key}", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := r.PathValue("key")
		chain := registry.Resolve(localization.FromContext(ctx)...)

		var (
			message string
			err     error
		)
		if r.URL.Query().Get("raw") == "true" {
			message, err = chain.Get(ctx, key)
		} else {
			message, err = chain.Format(ctx, key, stringArgs(r.URL.Query()["arg"])...)
		}
		if err != nil {
			status := statusFor(err)
			util.Log(ctx).WithError(err).WithField("key", key).WithField("status", status).
				Debug("message request failed")
			writeJSON(w, r, status, errorResponse{Error: err.Error()})
			return
		}

		writeJSON(w, r, http.StatusOK, messageResponse{Key: key, Locale: chain.Locale(), Message: message})
	})

	return mux
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, messageformat.ErrUnknownKey), errors.Is(err, messageformat.ErrUnknownSection):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrCatalogLoad):
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		util.Log(r.Context()).WithError(err).Warn("could not write response")
	}
}

// Package handler implements the JSON HTTP API. Handlers validate input,
// run the authorization policy against the target entity, call into the
// stores, and map domain errors onto statuses via apperr.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mjimenez-dev/casita/internal/apperr"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error onto its HTTP status and stable code.
// Unclassified errors surface as a generic 500 so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.Status(err), map[string]string{
		"code":  apperr.Code(err),
		"error": apperr.Detail(err),
	})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// dateQuery reads a YYYY-MM-DD query parameter, falling back to def when
// absent. A malformed value yields a Validation error.
func dateQuery(r *http.Request, name, def string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	if _, err := time.Parse(dateLayout, v); err != nil {
		return "", apperr.New(apperr.Validation, name+" must be a YYYY-MM-DD date")
	}
	return v, nil
}

func today() string {
	return time.Now().UTC().Format(dateLayout)
}

func parseUserIDQuery(v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.Validation, "user_id must be an integer")
	}
	return id, nil
}

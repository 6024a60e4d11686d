package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gamalabdu/trash-billing/internal/domain"
	log "github.com/sirupsen/logrus"
)

// RetryAfterSeconds is advertised on transient failures.
const RetryAfterSeconds = 5

type errorBody struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.WithError(err).Error("failed to encode JSON response")
		}
	}
}

// Error writes an error JSON response, using AppError status codes when available.
func Error(w http.ResponseWriter, err error) {
	appErr, ok := domain.AsAppError(err)
	if !ok {
		log.WithError(err).Error("unhandled error")
		JSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error", Kind: domain.KindInternal})
		return
	}

	switch appErr.Kind {
	case domain.KindTransient:
		log.WithError(err).Warn("transient billing failure")
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	case domain.KindConfiguration, domain.KindInternal:
		log.WithError(err).WithField("kind", appErr.Kind).Error("billing request failed")
	}

	msg := appErr.Message
	if appErr.Kind == domain.KindInternal {
		msg = "internal server error"
	}
	JSON(w, appErr.Code, errorBody{Error: msg, Kind: appErr.Kind})
}

// DecodeJSON decodes a JSON request body into the given struct.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrBadRequest("invalid JSON body")
	}
	return nil
}

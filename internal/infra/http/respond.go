package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError: ошибки бизнес-слоя отдаются как есть, остальные скрываются за internal_error.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.KindConfiguration {
		writeJSON(w, status, errorResponse{Code: ae.Code, Message: ae.Message})
		return
	}
	log.Error("request failed", "request_id", RequestID(r.Context()), "path", r.URL.Path, "err", err)
	writeJSON(w, status, errorResponse{Code: "internal_error", Message: "internal error"})
}

// decode читает JSON-тело и проверяет теги validate.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid_payload", "invalid JSON body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}
			return apperr.Validation("invalid_payload", "invalid fields: %s", strings.Join(fields, ", "))
		}
		return apperr.Validation("invalid_payload", "%v", err)
	}
	return nil
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/board"
	"github.com/sells-group/prospect-cli/internal/interest"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/prospect"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Error codes carried in failed envelopes.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeNotFound       = "not_found"
	CodeInternal       = "internal"
)

const maxBodyBytes = 10 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is a client mistake: bad JSON or a failed validation rule.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

// decode reads a JSON body into dst and validates it. An empty body leaves
// dst at its zero value before validation.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return badRequest(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "required_without":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must be at least "+fe.Param())
		case "max":
			msgs = append(msgs, field+" must be at most "+fe.Param())
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+fe.Param())
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return badRequest(strings.Join(msgs, ", "))
}

// ok writes payload's fields next to "success": true. Payload must encode
// as a JSON object.
func ok(w http.ResponseWriter, status int, payload any) {
	out := map[string]any{}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err == nil {
			err = json.Unmarshal(b, &out)
		}
		if err != nil {
			zap.L().Error("api: encode payload", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false, "error": "could not encode response", "code": CodeInternal,
			})
			return
		}
	}
	out["success"] = true
	writeJSON(w, status, out)
}

// fail maps err onto a status and error code.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal error"
	case http.StatusUnauthorized:
		msg = "authentication required"
	}
	writeJSON(w, status, map[string]any{"success": false, "error": msg, "code": code})
}

func classify(err error) (int, string) {
	var reqErr *requestError
	var rowErrs *prospect.RowErrors
	switch {
	case errors.As(err, &reqErr), errors.As(err, &rowErrs),
		eris.Is(err, prospect.ErrNoValidLeads),
		eris.Is(err, prospect.ErrQueryRequired),
		eris.Is(err, interest.ErrEmptyMessage),
		eris.Is(err, board.ErrInvalidStatus):
		return http.StatusBadRequest, CodeInvalidRequest
	case eris.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case eris.Is(err, store.ErrNotFound),
		eris.Is(err, board.ErrCardNotFound),
		eris.Is(err, outreach.ErrNoTemplate):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

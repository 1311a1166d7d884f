package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gyaneshwarpardhi/formflow/internal/condition"
	"github.com/gyaneshwarpardhi/formflow/internal/engine"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

const maxBodyBytes = 1 << 20

type nextRequest struct {
	BlockID string           `json:"block_id" validate:"required"`
	Answer  condition.Answer `json:"answer"`
}

type simulateRequest struct {
	Answers engine.Answers `json:"answers"`
}

type batchRequest struct {
	Runs []engine.Answers `json:"runs" validate:"required,min=1,max=100"`
}

type repairRequest struct {
	Blocks      []workflow.Block            `json:"blocks" validate:"dive"`
	Connections []workflow.ConnectionRecord `json:"connections" validate:"dive"`
	// Previous is the connection set before the ids were regenerated.
	Previous []workflow.ConnectionRecord `json:"previous,omitempty" validate:"dive"`
}

// fieldError is one failed validation rule.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validationError []fieldError

func (v validationError) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Blocks and connection records carry their own required ids.
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		b := sl.Current().Interface().(workflow.Block)
		if b.ID == "" {
			sl.ReportError(b.ID, "id", "ID", "required", "")
		}
	}, workflow.Block{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(workflow.ConnectionRecord)
		if c.ID == "" {
			sl.ReportError(c.ID, "id", "ID", "required", "")
		}
		if c.SourceID == "" {
			sl.ReportError(c.SourceID, "source_id", "SourceID", "required", "")
		}
	}, workflow.ConnectionRecord{})
	return v
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
		fields := make(validationError, 0, len(verrs))
		for _, e := range verrs {
			fields = append(fields, fieldError{Field: fieldPath(e), Message: message(e)})
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fields.Error(), Fields: fields})
		return false
	}
	return true
}

// fieldPath drops the request struct name: "nextRequest.block_id" -> "block_id".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", e.Param())
	case "max":
		return fmt.Sprintf("must contain at most %s item(s)", e.Param())
	}
	return fmt.Sprintf("failed %s validation", e.Tag())
}

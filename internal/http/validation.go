package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-playground/validator/v10"
)

const maxRequestBodySize = 1 << 20 // 1MB

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// requestError is an InvalidInput failure raised before any service call.
type requestError struct {
	msg     string
	details map[string]string
}

func (e *requestError) Error() string { return e.msg }

func (e *requestError) Unwrap() error { return domain.ErrInvalidInput }

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dest any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return &requestError{
			msg:     "invalid JSON body",
			details: map[string]string{"body": err.Error()},
		}
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return &requestError{msg: "validation failed", details: map[string]string{"body": err.Error()}}
	}
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldNamespace(fieldErr)] = validationMessage(fieldErr)
	}
	return &requestError{msg: "validation failed", details: details}
}

// fieldNamespace drops the struct name so keys read like "items[0].id".
func fieldNamespace(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "numeric":
		return "must be a decimal number"
	}
	return "is invalid"
}

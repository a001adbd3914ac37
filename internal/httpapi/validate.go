package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// newValidator reports fields by their wire name rather than the Go field name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "query", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(key), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// bindAndValidate binds req from the request, fills defaults and validates it.
// A non-nil result is the 400 body to send back.
func bindAndValidate(c echo.Context, req any) *ErrorResponse {
	if err := c.Bind(req); err != nil {
		return &ErrorResponse{Error: "malformed request", Details: []string{bindMessage(err)}}
	}
	if err := defaults.Set(req); err != nil {
		return &ErrorResponse{Error: "malformed request", Details: []string{err.Error()}}
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return &ErrorResponse{Error: "validation failed", Details: validationMessages(err)}
	}
	return nil
}

func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fmt.Sprintf("%v", he.Message)
	}
	return err.Error()
}

func validationMessages(err error) []string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(ves))
	for _, fe := range ves {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out = append(out, fmt.Sprintf("%s is required", field))
		case "max", "lte":
			out = append(out, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "min", "gte":
			out = append(out, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "oneof":
			out = append(out, fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			out = append(out, fmt.Sprintf("%s failed validation: %s", field, fe.Tag()))
		}
	}
	return out
}

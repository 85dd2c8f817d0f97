package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cafehub/apperr"
	"cafehub/globals"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// DecodeJSON reads the request body into dst and runs struct validation.
func DecodeJSON(r *http.Request, dst any) error {
	if err := ReadJSON(r, dst); err != nil {
		return err
	}
	return ValidateStruct(dst)
}

// ReadJSON decodes the request body without validating it.
func ReadJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Wrap(apperr.KindValidation, err, "invalid JSON body")
	}
	return nil
}

// ValidateStruct maps validator failures onto a validation error listing the fields.
func ValidateStruct(v any) error {
	err := globals.Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindValidation, err, "invalid input")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}
	return apperr.Wrap(apperr.KindValidation, err, "invalid fields: %s", strings.Join(fields, ", "))
}

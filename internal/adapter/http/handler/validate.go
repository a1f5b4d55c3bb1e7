package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// shared across handlers, validator.Validate is safe for concurrent use
var validate = validator.New()

// validationErrors turns validator output into a field → message map for
// the 422 response body.
func validationErrors(err error) map[string]string {
	out := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = err.Error()
		return out
	}

	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = "this field is required"
		case "oneof":
			out[field] = "must be one of: " + fe.Param()
		case "min", "gte":
			out[field] = "must be at least " + fe.Param()
		case "max", "lte":
			out[field] = "must be at most " + fe.Param()
		default:
			out[field] = "failed on the '" + fe.Tag() + "' rule"
		}
	}
	return out
}

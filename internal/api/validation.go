package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

var registerOnce sync.Once

// UseJSONFieldNames makes gin's validator report fields by their json tag.
func UseJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			switch name {
			case "-":
				return "-"
			case "":
				return fld.Name
			}
			return name
		})
	})
}

// FieldErrors converts a binding error into field-level messages. Errors that
// are not validator errors (malformed JSON, bad dates) become a single
// "body" entry.
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Tag: "invalid", Message: bodyMessage(err)}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   jsonName(fe),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func bodyMessage(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return "request body is not valid JSON"
	case errors.As(err, &typeErr):
		return typeErr.Field + " has the wrong type"
	default:
		return err.Error()
	}
}

func jsonName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonName(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	case "gte":
		return field + " must be greater than or equal to " + fe.Param()
	case "lte":
		return field + " must be less than or equal to " + fe.Param()
	case "len":
		return field + " must be exactly " + fe.Param() + " characters"
	case "oneof":
		return field + " must be one of " + fe.Param()
	case "numeric":
		return field + " must contain only digits"
	default:
		return field + " is invalid"
	}
}

func RespondValidation(c *gin.Context, details ...FieldError) {
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Error:   "validation failed",
		Details: details,
	})
}

func RespondBindError(c *gin.Context, err error) {
	RespondValidation(c, FieldErrors(err)...)
}

func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// ParseID reads a positive integer path parameter.
func ParseID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		RespondValidation(c, FieldError{Field: name, Tag: "id", Message: name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

// Pagination reads page and limit query params, applying defaults and the
// upper bound on limit. Pages whose offset would overflow an int are rejected.
func Pagination(c *gin.Context) (page, limit int, ok bool) {
	page, limit = 1, DefaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 || l > MaxPageLimit {
			RespondValidation(c, FieldError{Field: "limit", Tag: "range", Message: "limit must be between 1 and " + strconv.Itoa(MaxPageLimit)})
			return 0, 0, false
		}
		limit = l
	}
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			RespondValidation(c, FieldError{Field: "page", Tag: "min", Message: "page must be at least 1"})
			return 0, 0, false
		}
		if p > math.MaxInt/limit {
			RespondValidation(c, FieldError{Field: "page", Tag: "max", Message: "page must be at most " + strconv.Itoa(math.MaxInt/limit)})
			return 0, 0, false
		}
		page = p
	}
	return page, limit, true
}

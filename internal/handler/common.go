package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/logging"
	"github.com/iliyamo/park-passes/internal/middleware"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/repository"
	"github.com/iliyamo/park-passes/internal/service"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct{}

func (Validator) Validate(i any) error { return check(i) }

func check(i any) error {
	err := validate.Struct(i)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		msg := fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
		if fe.Tag() == "required" {
			msg = fe.Field() + " is required"
		}
		return &model.ValidationError{Msg: msg}
	}
	return &model.ValidationError{Msg: err.Error()}
}

// normalizer is implemented by requests that clean up their fields
// before validation.
type normalizer interface {
	normalize()
}

// bind decodes the request into req, normalizes and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return &model.ValidationError{Msg: "invalid body"}
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	return check(req)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// actor converts the identity set by the JWT middleware.
func actor(c echo.Context) service.Actor {
	id := middleware.IdentityFrom(c)
	return service.Actor{UserID: id.UserID, Role: id.Role, RetailerGroupID: id.RetailerGroupID}
}

func paramID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, &model.ValidationError{Msg: "invalid id"}
	}
	return id, nil
}

// queryID reads an optional positive id from the query string.
func queryID(c echo.Context, name string) (*uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, &model.ValidationError{Msg: "invalid " + name}
	}
	return &id, nil
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, &model.ValidationError{Msg: name + " must be a YYYY-MM-DD date"}
	}
	return &d, nil
}

func parseDate(s string) time.Time {
	d, _ := time.Parse(dateLayout, s)
	return d
}

// fail writes the JSON error response for err.
func fail(c echo.Context, err error) error {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Msg})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrProtected):
		return c.JSON(http.StatusConflict, echo.Map{"error": "still referenced by other records"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, model.ErrIntegrity):
		logging.Critical().WithError(err).WithField("path", c.Path()).Error("integrity violation")
	default:
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

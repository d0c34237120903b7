package handler // handler defines http handlers

import (
    "context"
    "errors"
    "log"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/resource-booking/internal/booking"
    "github.com/iliyamo/resource-booking/internal/lock"
    "github.com/iliyamo/resource-booking/internal/model"
    "github.com/iliyamo/resource-booking/internal/repository"
    "github.com/iliyamo/resource-booking/internal/service"
)

// RequestValidator plugs go-playground/validator into echo so handlers can
// call c.Validate on bound request bodies.
type RequestValidator struct {
    v *validator.Validate
}

func NewRequestValidator() *RequestValidator { return &RequestValidator{v: validator.New()} }

func (rv *RequestValidator) Validate(i interface{}) error { return rv.v.Struct(i) }

// bindAndValidate decodes the body into req and runs struct validation.
// It writes the 400 response itself and reports whether to continue.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
    if err := c.Bind(req); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(req); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    return true, nil
}

func validationMessage(err error) string {
    var ve validator.ValidationErrors
    if !errors.As(err, &ve) {
        return "invalid body"
    }
    parts := make([]string, 0, len(ve))
    for _, fe := range ve {
        parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
    }
    return strings.Join(parts, "; ")
}

// getUserID extracts the user_id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
    switch t := c.Get("user_id").(type) {
    case uint64:
        return t, nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// actorFrom builds the booking actor for the authenticated request.
func actorFrom(c echo.Context) (booking.Actor, bool) {
    uid, err := getUserID(c)
    if err != nil || uid == 0 {
        return booking.Actor{}, false
    }
    role, _ := c.Get("role").(string)
    return booking.Actor{UserID: uid, Role: model.Role(role)}, true
}

func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id != 0
}

// queryWindow parses optional RFC3339 start/end query parameters.  present
// is false when both are absent.
func queryWindow(c echo.Context) (start, end time.Time, present bool, err error) {
    s, e := c.QueryParam("start"), c.QueryParam("end")
    if s == "" && e == "" {
        return time.Time{}, time.Time{}, false, nil
    }
    if start, err = time.Parse(time.RFC3339, s); err != nil {
        return time.Time{}, time.Time{}, true, err
    }
    if end, err = time.Parse(time.RFC3339, e); err != nil {
        return time.Time{}, time.Time{}, true, err
    }
    return start.UTC(), end.UTC(), true, nil
}

// writeError maps domain errors to HTTP responses.
func writeError(c echo.Context, err error) error {
    var full *booking.FullyBookedError
    if errors.As(err, &full) {
        return c.JSON(http.StatusConflict, echo.Map{
            "error":           "resource fully booked",
            "reason":          booking.ReasonFullyBooked,
            "resource_id":     full.ResourceID,
            "booked_quantity": full.Booked,
            "quantity":        full.Capacity,
            "start_time":      full.Start.UTC(),
            "end_time":        full.End.UTC(),
        })
    }
    switch {
    case errors.Is(err, booking.ErrInvalidWindow),
        errors.Is(err, booking.ErrPurposeRequired),
        errors.Is(err, service.ErrInvalidPhone),
        errors.Is(err, service.ErrInvalidAmount):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, booking.ErrNotOwner):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, booking.ErrResourceNotFound),
        errors.Is(err, booking.ErrReservationNotFound),
        errors.Is(err, service.ErrPaymentNotFound),
        errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, booking.ErrInvalidTransition),
        errors.Is(err, booking.ErrNotCancellable),
        errors.Is(err, booking.ErrAlreadyPast),
        errors.Is(err, booking.ErrNotEditable),
        errors.Is(err, booking.ErrResourceUnavailable),
        errors.Is(err, booking.ErrInvalidPaymentTransition),
        errors.Is(err, service.ErrPaymentNotRequired),
        errors.Is(err, service.ErrAlreadyPaid),
        errors.Is(err, service.ErrNotPayable),
        errors.Is(err, service.ErrAlreadyResolved),
        errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrGatewayUnavailable),
        errors.Is(err, lock.ErrLockTimeout),
        errors.Is(err, context.DeadlineExceeded):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, retry later"})
    }
    log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

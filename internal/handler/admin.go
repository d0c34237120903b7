package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/resource-booking/internal/model"
)

// AdminHandler serves the review queue.  Routes require the ADMIN role.
type AdminHandler struct {
    Bookings Bookings
}

func NewAdminHandler(b Bookings) *AdminHandler {
    if b == nil {
        panic("nil bookings passed to NewAdminHandler")
    }
    return &AdminHandler{Bookings: b}
}

// List handles GET /v1/admin/reservations?status=PENDING.
func (h *AdminHandler) List(c echo.Context) error {
    status := model.Status(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
    if status != "" && !status.Valid() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
    }
    list, err := h.Bookings.ListAll(c.Request().Context(), status)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toReservationList(list))
}

func (h *AdminHandler) Approve(c echo.Context) error { return h.transition(c, model.StatusApproved) }
func (h *AdminHandler) Reject(c echo.Context) error  { return h.transition(c, model.StatusRejected) }
func (h *AdminHandler) Archive(c echo.Context) error { return h.transition(c, model.StatusArchived) }

func (h *AdminHandler) transition(c echo.Context, target model.Status) error {
    actor, ok := actorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    r, err := h.Bookings.Transition(c.Request().Context(), actor, id, target)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(r))
}

// CompleteExpired handles POST /v1/admin/reservations/complete-expired and
// runs the completion sweep on demand.
func (h *AdminHandler) CompleteExpired(c echo.Context) error {
    n, err := h.Bookings.CompleteExpired(c.Request().Context(), 0)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"completed": n})
}

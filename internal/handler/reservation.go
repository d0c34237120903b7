package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/resource-booking/internal/booking"
)

// ReservationHandler exposes reservation admission and the owner's side of
// the lifecycle.  All routes sit behind JWTAuth.
type ReservationHandler struct {
    Bookings Bookings
}

func NewReservationHandler(b Bookings) *ReservationHandler {
    if b == nil {
        panic("nil bookings passed to NewReservationHandler")
    }
    return &ReservationHandler{Bookings: b}
}

type reservationReq struct {
    ResourceID uint64    `json:"resource_id" validate:"required"`
    StartTime  time.Time `json:"start_time" validate:"required"`
    EndTime    time.Time `json:"end_time" validate:"required"`
    Purpose    string    `json:"purpose" validate:"max=500"`
}

type editReq struct {
    ResourceID uint64    `json:"resource_id"`
    StartTime  time.Time `json:"start_time" validate:"required"`
    EndTime    time.Time `json:"end_time" validate:"required"`
    Purpose    string    `json:"purpose" validate:"max=500"`
}

// Create handles POST /v1/reservations.  A capacity rejection answers 409
// with the booked and total quantities.
func (h *ReservationHandler) Create(c echo.Context) error {
    actor, ok := actorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req reservationReq
    if ok, err := bindAndValidate(c, &req); !ok {
        return err
    }
    r, err := h.Bookings.Create(c.Request().Context(), booking.CreateInput{
        UserID:     actor.UserID,
        ResourceID: req.ResourceID,
        Start:      req.StartTime.UTC(),
        End:        req.EndTime.UTC(),
        Purpose:    req.Purpose,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, toReservationResp(r))
}

// Check handles POST /v1/reservations/check.  It runs the resolver without
// writing anything and always answers 200 with the decision.
func (h *ReservationHandler) Check(c echo.Context) error {
    var req reservationReq
    if ok, err := bindAndValidate(c, &req); !ok {
        return err
    }
    d, err := h.Bookings.Evaluate(c.Request().Context(), req.ResourceID, req.StartTime.UTC(), req.EndTime.UTC(), 0)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, d)
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
    actor, ok := actorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Bookings.ListForUser(c.Request().Context(), actor.UserID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toReservationList(list))
}

// Get handles GET /v1/reservations/:id.  Owners see their own; admins see all.
func (h *ReservationHandler) Get(c echo.Context) error {
    actor, ok := actorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    r, err := h.Bookings.Get(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(r))
}

// Edit handles PUT /v1/reservations/:id for the owner's PENDING reservations.
func (h *ReservationHandler) Edit(c echo.Context) error {
    actor, ok := actorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req editReq
    if ok, err := bindAndValidate(c, &req); !ok {
        return err
    }
    r, err := h.Bookings.Edit(c.Request().Context(), actor, id, booking.EditInput{
        ResourceID: req.ResourceID,
        Start:      req.StartTime.UTC(),
        End:        req.EndTime.UTC(),
        Purpose:    req.Purpose,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(r))
}

// Cancel handles POST /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    actor, ok := actorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    r, err := h.Bookings.Cancel(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(r))
}

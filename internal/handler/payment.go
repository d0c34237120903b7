package handler

import (
    "context"
    "crypto/subtle"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/resource-booking/internal/booking"
    "github.com/iliyamo/resource-booking/internal/model"
    "github.com/iliyamo/resource-booking/internal/service"
)

// Payments is implemented by *service.PaymentService.
type Payments interface {
    Request(ctx context.Context, actor booking.Actor, reservationID uint64, phone string) (model.PaymentTransaction, error)
    HandleCallback(ctx context.Context, in service.CallbackInput) (model.Reservation, error)
    History(ctx context.Context, actor booking.Actor, reservationID uint64) ([]model.PaymentTransaction, error)
}

var _ Payments = (*service.PaymentService)(nil)

type PaymentHandler struct {
    Payments      Payments
    CallbackToken string
}

func NewPaymentHandler(p Payments, callbackToken string) *PaymentHandler {
    if p == nil {
        panic("nil payments passed to NewPaymentHandler")
    }
    return &PaymentHandler{Payments: p, CallbackToken: callbackToken}
}

type payReq struct {
    PhoneNumber string `json:"phone_number" validate:"required,max=20"`
}

type callbackReq struct {
    Reference  string `json:"reference" validate:"required"`
    ResultCode int    `json:"result_code"`
    ExternalID string `json:"external_id" validate:"max=100"`
}

// Pay handles POST /v1/reservations/:id/pay.  The request is accepted for
// asynchronous processing; the outcome arrives through the callback.
func (h *PaymentHandler) Pay(c echo.Context) error {
    actor, ok := actorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req payReq
    if ok, err := bindAndValidate(c, &req); !ok {
        return err
    }
    tx, err := h.Payments.Request(c.Request().Context(), actor, id, req.PhoneNumber)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusAccepted, toPaymentResp(tx))
}

// History handles GET /v1/reservations/:id/payments.
func (h *PaymentHandler) History(c echo.Context) error {
    actor, ok := actorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    list, err := h.Payments.History(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, err)
    }
    out := make([]paymentResp, 0, len(list))
    for _, p := range list {
        out = append(out, toPaymentResp(p))
    }
    return c.JSON(http.StatusOK, out)
}

// Callback handles POST /v1/payments/callback from the gateway worker.
// result_code 0 means the payer completed the prompt.
func (h *PaymentHandler) Callback(c echo.Context) error {
    if h.CallbackToken != "" {
        got := c.Request().Header.Get("X-Callback-Token")
        if subtle.ConstantTimeCompare([]byte(got), []byte(h.CallbackToken)) != 1 {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid callback token"})
        }
    }
    var req callbackReq
    if ok, err := bindAndValidate(c, &req); !ok {
        return err
    }
    r, err := h.Payments.HandleCallback(c.Request().Context(), service.CallbackInput{
        Reference:  req.Reference,
        Success:    req.ResultCode == 0,
        ExternalID: req.ExternalID,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservation_id": r.ID, "payment_status": r.PaymentStatus})
}

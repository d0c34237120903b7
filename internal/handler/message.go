package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/resource-booking/internal/model"
)

// Inbox is implemented by *repository.MessageRepo.
type Inbox interface {
    ListForRecipient(ctx context.Context, userID uint64) ([]model.Message, error)
    UnreadCount(ctx context.Context, userID uint64) (int, error)
    MarkRead(ctx context.Context, id, userID uint64) error
}

type MessageHandler struct {
    Inbox Inbox
}

func NewMessageHandler(inbox Inbox) *MessageHandler { return &MessageHandler{Inbox: inbox} }

// List handles GET /v1/messages.
func (h *MessageHandler) List(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx := c.Request().Context()
    msgs, err := h.Inbox.ListForRecipient(ctx, uid)
    if err != nil {
        return writeError(c, err)
    }
    unread, err := h.Inbox.UnreadCount(ctx, uid)
    if err != nil {
        return writeError(c, err)
    }
    items := make([]messageResp, 0, len(msgs))
    for _, m := range msgs {
        items = append(items, messageResp{ID: m.ID, Subject: m.Subject, Body: m.Body, IsRead: m.IsRead, CreatedAt: m.CreatedAt})
    }
    return c.JSON(http.StatusOK, echo.Map{"unread": unread, "messages": items})
}

// MarkRead handles POST /v1/messages/:id/read.
func (h *MessageHandler) MarkRead(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid message id"})
    }
    if err := h.Inbox.MarkRead(c.Request().Context(), id, uid); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

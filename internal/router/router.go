package router // package router registers the HTTP routes of the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/resource-booking/internal/handler"
    "github.com/iliyamo/resource-booking/internal/middleware"
    "github.com/iliyamo/resource-booking/internal/model"
)

// Handlers groups everything the router wires.
type Handlers struct {
    Auth         *handler.AuthHandler
    Resources    *handler.ResourceHandler
    Reservations *handler.ReservationHandler
    Admin        *handler.AdminHandler
    Payments     *handler.PaymentHandler
    Messages     *handler.MessageHandler
    Health       echo.HandlerFunc
}

// Middleware carries the Redis-backed extras; nil fields are skipped.
type Middleware struct {
    RateLimit echo.MiddlewareFunc
    Cache     *middleware.ResponseCache
}

// Register mounts every route on e.
//
//  public:  /healthz, /v1/auth/*, GET /v1/resources[/:id], POST /v1/payments/callback
//  users:   /v1/me, /v1/reservations*, /v1/my-reservations, /v1/messages*
//  admins:  /v1/admin/*
func Register(e *echo.Echo, h Handlers, jwtSecret string, mw Middleware) {
    e.GET("/healthz", h.Health)

    v1 := e.Group("/v1")
    if mw.RateLimit != nil {
        v1.Use(mw.RateLimit)
    }

    a := v1.Group("/auth")
    a.POST("/register", h.Auth.Register)
    a.POST("/login", h.Auth.Login)
    a.POST("/refresh", h.Auth.Refresh)
    a.POST("/logout", h.Auth.Logout)

    v1.GET("/resources", h.Resources.List, mw.Cache.Middleware())
    v1.GET("/resources/:id", h.Resources.Get, mw.Cache.Middleware())
    v1.POST("/payments/callback", h.Payments.Callback)

    user := v1.Group("", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleUser, model.RoleAdmin))
    user.GET("/me", h.Auth.Me)
    user.POST("/reservations", h.Reservations.Create)
    user.POST("/reservations/check", h.Reservations.Check)
    user.GET("/my-reservations", h.Reservations.ListMine)
    user.GET("/reservations/:id", h.Reservations.Get)
    user.PUT("/reservations/:id", h.Reservations.Edit)
    user.POST("/reservations/:id/cancel", h.Reservations.Cancel)
    user.POST("/reservations/:id/pay", h.Payments.Pay)
    user.GET("/reservations/:id/payments", h.Payments.History)
    user.GET("/messages", h.Messages.List)
    user.POST("/messages/:id/read", h.Messages.MarkRead)

    admin := v1.Group("/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
    admin.GET("/resources", h.Resources.ListAll)
    admin.POST("/resources", h.Resources.Create, mw.Cache.PurgeOnWrite())
    admin.PUT("/resources/:id", h.Resources.Update, mw.Cache.PurgeOnWrite())
    admin.GET("/reservations", h.Admin.List)
    admin.POST("/reservations/complete-expired", h.Admin.CompleteExpired)
    admin.POST("/reservations/:id/approve", h.Admin.Approve)
    admin.POST("/reservations/:id/reject", h.Admin.Reject)
    admin.POST("/reservations/:id/archive", h.Admin.Archive)
}

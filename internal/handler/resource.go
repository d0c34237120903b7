package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/resource-booking/internal/model"
)

// ResourceHandler serves the resource catalogue.  Browsing is public;
// creating and editing resources is admin-only.
type ResourceHandler struct {
    Resources ResourceStore
    Bookings  Bookings
}

func NewResourceHandler(resources ResourceStore, bookings Bookings) *ResourceHandler {
    if resources == nil || bookings == nil {
        panic("nil dependency passed to NewResourceHandler")
    }
    return &ResourceHandler{Resources: resources, Bookings: bookings}
}

type resourceReq struct {
    Name        string      `json:"name" validate:"required,max=150"`
    Type        string      `json:"type" validate:"required,oneof=ROOM EQUIPMENT LAB VEHICLE OTHER room equipment lab vehicle other"`
    Description string      `json:"description" validate:"max=2000"`
    Quantity    uint32      `json:"quantity" validate:"required,min=1"`
    Cost        model.Money `json:"cost" validate:"min=0"`
    IsAvailable *bool       `json:"is_available"`
}

func (r resourceReq) apply(res *model.Resource) {
    res.Name = strings.TrimSpace(r.Name)
    res.Type = model.ResourceType(strings.ToUpper(r.Type))
    res.Description = strings.TrimSpace(r.Description)
    res.Quantity = r.Quantity
    res.Cost = r.Cost
    if r.IsAvailable != nil {
        res.IsAvailable = *r.IsAvailable
    }
}

// List handles GET /v1/resources.  Only available resources are listed.
// With ?start=&end= each entry carries available_quantity for the window.
func (h *ResourceHandler) List(c echo.Context) error {
    return h.list(c, true)
}

// ListAll handles GET /v1/admin/resources, including unavailable ones.
func (h *ResourceHandler) ListAll(c echo.Context) error {
    return h.list(c, false)
}

func (h *ResourceHandler) list(c echo.Context, availableOnly bool) error {
    start, end, withWindow, err := queryWindow(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be RFC3339 timestamps"})
    }
    ctx := c.Request().Context()
    list, err := h.Resources.List(ctx, availableOnly)
    if err != nil {
        return writeError(c, err)
    }
    out := make([]resourceResp, 0, len(list))
    for _, r := range list {
        item := toResourceResp(r)
        if withWindow {
            n, err := h.Bookings.AvailableQuantity(ctx, r.ID, start, end)
            if err != nil {
                return writeError(c, err)
            }
            item.AvailableQuantity = &n
        }
        out = append(out, item)
    }
    return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/resources/:id, with optional availability window.
func (h *ResourceHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
    }
    start, end, withWindow, err := queryWindow(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be RFC3339 timestamps"})
    }
    res, err := h.Resources.GetByID(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    out := toResourceResp(res)
    if withWindow {
        n, err := h.Bookings.AvailableQuantity(c.Request().Context(), id, start, end)
        if err != nil {
            return writeError(c, err)
        }
        out.AvailableQuantity = &n
    }
    return c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/admin/resources.
func (h *ResourceHandler) Create(c echo.Context) error {
    var req resourceReq
    if ok, err := bindAndValidate(c, &req); !ok {
        return err
    }
    res := model.Resource{IsAvailable: true}
    req.apply(&res)
    if err := h.Resources.Create(c.Request().Context(), &res); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, toResourceResp(res))
}

// Update handles PUT /v1/admin/resources/:id.  Lowering quantity leaves
// existing reservations in place and only limits new admissions.
func (h *ResourceHandler) Update(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
    }
    var req resourceReq
    if ok, err := bindAndValidate(c, &req); !ok {
        return err
    }
    ctx := c.Request().Context()
    res, err := h.Resources.GetByID(ctx, id)
    if err != nil {
        return writeError(c, err)
    }
    req.apply(&res)
    if err := h.Resources.Update(ctx, &res); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toResourceResp(res))
}

package handler

import (
    "time"

    "github.com/iliyamo/resource-booking/internal/model"
)

type resourceResp struct {
    ID                uint64             `json:"id"`
    Name              string             `json:"name"`
    Type              model.ResourceType `json:"type"`
    Description       string             `json:"description"`
    Quantity          uint32             `json:"quantity"`
    Cost              model.Money        `json:"cost"`
    IsAvailable       bool               `json:"is_available"`
    AvailableQuantity *int               `json:"available_quantity,omitempty"`
    CreatedAt         time.Time          `json:"created_at"`
    UpdatedAt         time.Time          `json:"updated_at"`
}

func toResourceResp(r model.Resource) resourceResp {
    return resourceResp{
        ID: r.ID, Name: r.Name, Type: r.Type, Description: r.Description, Quantity: r.Quantity,
        Cost: r.Cost, IsAvailable: r.IsAvailable, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
    }
}

type reservationResp struct {
    ID            uint64              `json:"id"`
    UserID        uint64              `json:"user_id"`
    ResourceID    uint64              `json:"resource_id"`
    StartTime     time.Time           `json:"start_time"`
    EndTime       time.Time           `json:"end_time"`
    Status        model.Status        `json:"status"`
    PaymentStatus model.PaymentStatus `json:"payment_status"`
    Purpose       string              `json:"purpose,omitempty"`
    CreatedAt     time.Time           `json:"created_at"`
    UpdatedAt     time.Time           `json:"updated_at"`
}

func toReservationResp(r model.Reservation) reservationResp {
    return reservationResp{
        ID: r.ID, UserID: r.UserID, ResourceID: r.ResourceID,
        StartTime: r.StartTime.UTC(), EndTime: r.EndTime.UTC(),
        Status: r.Status, PaymentStatus: r.PaymentStatus, Purpose: r.Purpose,
        CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
    }
}

func toReservationList(rs []model.Reservation) []reservationResp {
    out := make([]reservationResp, 0, len(rs))
    for _, r := range rs {
        out = append(out, toReservationResp(r))
    }
    return out
}

type paymentResp struct {
    ID            uint64                  `json:"id"`
    ReservationID uint64                  `json:"reservation_id"`
    PhoneNumber   string                  `json:"phone_number"`
    Amount        model.Money             `json:"amount"`
    Reference     string                  `json:"reference"`
    ExternalID    *string                 `json:"external_id,omitempty"`
    Status        model.TransactionStatus `json:"status"`
    CreatedAt     time.Time               `json:"created_at"`
}

func toPaymentResp(p model.PaymentTransaction) paymentResp {
    return paymentResp{
        ID: p.ID, ReservationID: p.ReservationID, PhoneNumber: p.PhoneNumber, Amount: p.Amount,
        Reference: p.Reference, ExternalID: p.ExternalID, Status: p.Status, CreatedAt: p.CreatedAt,
    }
}

type messageResp struct {
    ID        uint64    `json:"id"`
    Subject   string    `json:"subject"`
    Body      string    `json:"body"`
    IsRead    bool      `json:"is_read"`
    CreatedAt time.Time `json:"created_at"`
}

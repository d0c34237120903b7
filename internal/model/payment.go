package model

import "time"

// TransactionStatus is the state of a single mobile-money payment attempt.
type TransactionStatus string

const (
    TxPending TransactionStatus = "pending"
    TxSuccess TransactionStatus = "success"
    TxFailed  TransactionStatus = "failed"
)

// PaymentTransaction records one attempt to settle a reservation through
// the mobile-money gateway.  Reference is generated locally and echoed
// back by the gateway in its callback.
type PaymentTransaction struct {
    ID            uint64            // payment_transactions.id
    UserID        uint64            // payment_transactions.user_id
    ReservationID uint64            // payment_transactions.reservation_id
    PhoneNumber   string            // payment_transactions.phone_number
    Amount        Money             // payment_transactions.amount
    Reference     string            // payment_transactions.reference (unique)
    ExternalID    *string           // payment_transactions.external_id (gateway receipt, nullable)
    Status        TransactionStatus // payment_transactions.status
    CreatedAt     time.Time         // payment_transactions.created_at
    UpdatedAt     time.Time         // payment_transactions.updated_at
}

package model

import "time"

// Message is an inbox entry addressed to a user.  Messages are produced
// asynchronously from reservation lifecycle events.
type Message struct {
    ID          uint64    // user_messages.id
    RecipientID uint64    // user_messages.recipient_id
    Subject     string    // user_messages.subject
    Body        string    // user_messages.body
    IsRead      bool      // user_messages.is_read
    CreatedAt   time.Time // user_messages.created_at
}

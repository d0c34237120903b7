package model

import "time"

// ResourceType is the category of a bookable resource.
type ResourceType string

const (
    ResourceRoom      ResourceType = "ROOM"
    ResourceEquipment ResourceType = "EQUIPMENT"
    ResourceLab       ResourceType = "LAB"
    ResourceVehicle   ResourceType = "VEHICLE"
    ResourceOther     ResourceType = "OTHER"
)

// Valid reports whether t is one of the known resource categories.
func (t ResourceType) Valid() bool {
    switch t {
    case ResourceRoom, ResourceEquipment, ResourceLab, ResourceVehicle, ResourceOther:
        return true
    }
    return false
}

// Resource describes something users can reserve: a room, a piece of
// equipment, a lab or a vehicle.  Quantity is the number of
// interchangeable units; a quantity of one makes bookings exclusive.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique, human readable name.
//  Type        – resource category.
//  Description – optional free text.
//  Quantity    – number of units (always >= 1).
//  Cost        – price per booking (0 for free resources).
//  IsAvailable – gates whether new reservations may target it.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Resource struct {
    ID          uint64       // resources.id
    Name        string       // resources.name
    Type        ResourceType // resources.type
    Description string       // resources.description
    Quantity    uint32       // resources.quantity
    Cost        Money        // resources.cost (DECIMAL(10,2))
    IsAvailable bool         // resources.is_available
    CreatedAt   time.Time    // resources.created_at
    UpdatedAt   time.Time    // resources.updated_at
}

// RequiresPayment reports whether bookings of this resource must be paid for.
func (r Resource) RequiresPayment() bool { return r.Cost > 0 }

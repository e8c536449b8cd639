package model

import "time"

// Court is a bookable playing surface.  Courts are maintained outside this
// service and are read-only here apart from the booking_version counter
// that serializes concurrent bookings.
type Court struct {
    ID          uint64    // courts.id
    Name        string    // courts.name
    Description *string   // courts.description (nullable)
    Location    *string   // courts.location (nullable)
    ImageURL    *string   // courts.image_url (nullable)
    CreatedAt   time.Time // courts.created_at
}

package model

import "time"

// User is a person who can own or join reservations.  Users are created on
// first reference by email; Name and Image are filled in by the identity
// layer when the person signs in.
//
// Fields:
//  ID        – primary key identifier.
//  Email     – unique, lower-cased email address.
//  Name      – display name (nil until known).
//  Image     – profile image URL (nil until known).
//  CreatedAt – timestamp of creation.
type User struct {
    ID        uint64    // users.id
    Email     string    // users.email
    Name      *string   // users.name (nullable)
    Image     *string   // users.image (nullable)
    CreatedAt time.Time // users.created_at
}

package model

import (
    "strings"
    "time"
)

// Role is the closed set of account roles.
type Role string

const (
    RoleUser  Role = "USER"
    RoleAdmin Role = "ADMIN"
)

// ParseRole maps s onto a known role.  Unknown values are rejected
// rather than silently downgraded.
func ParseRole(s string) (Role, bool) {
    switch Role(strings.ToUpper(strings.TrimSpace(s))) {
    case RoleUser:
        return RoleUser, true
    case RoleAdmin:
        return RoleAdmin, true
    }
    return "", false
}

// User represents an application account as stored in the `users`
// table.  PasswordHash never leaves the service; handlers expose a
// separate response type.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  PasswordHash – bcrypt hash of the password.
//  Email        – unique email address.
//  Role         – USER or ADMIN.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    `db:"idusers"`       // users.idusers
    Username     string    `db:"username"`      // users.username
    PasswordHash string    `db:"password_hash"` // users.password_hash
    Email        string    `db:"email"`         // users.email
    Role         Role      `db:"role"`          // users.role
    CreatedAt    time.Time `db:"created_at"`    // users.created_at
}

// Actor is the authenticated caller of a request.  It is built from the
// access token by the JWT middleware and passed explicitly to every
// authorization decision.
type Actor struct {
    ID   uint64
    Role Role
}

// IsAdmin reports whether the actor has the ADMIN role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanActFor reports whether the actor may read or modify records owned by
// userID.  Admins may act for anyone; users only for themselves.
func (a Actor) CanActFor(userID uint64) bool {
    if a.IsAdmin() {
        return true
    }
    return a.Role == RoleUser && a.ID != 0 && a.ID == userID
}

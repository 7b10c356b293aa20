package model

import "time"

// Session is server-side login state keyed by an opaque random ID.
//
// MustChangePassword is copied from the user at login time. While it is set,
// the only protected operation the session may perform is changing the password.
type Session struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	Email              string    `json:"email"`
	MustChangePassword bool      `json:"mustChangePassword"`
	CreatedAt          time.Time `json:"createdAt"`
	LastSeenAt         time.Time `json:"lastSeenAt"`
}

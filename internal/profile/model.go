// File: internal/profile/model.go
package profile

import (
	"time"

	"github.com/gosimple/slug"

	"authflow_backend/internal/session"
)

// document is the Firestore shape of a profile record.
type document struct {
	PrincipalID string    `firestore:"principal_id"`
	Email       string    `firestore:"email"`
	Username    string    `firestore:"username"`
	Handle      string    `firestore:"handle"`
	CreatedAt   time.Time `firestore:"created_at"`
}

// fromRecord converts a session record into its stored form, deriving the
// URL-safe handle from the display username.
func fromRecord(rec *session.ProfileRecord) *document {
	handle := rec.Handle
	if handle == "" {
		handle = slug.Make(rec.Username)
	}
	return &document{
		PrincipalID: rec.PrincipalID,
		Email:       rec.Email,
		Username:    rec.Username,
		Handle:      handle,
		CreatedAt:   rec.CreatedAt,
	}
}

func (d *document) toRecord() *session.ProfileRecord {
	return &session.ProfileRecord{
		PrincipalID: d.PrincipalID,
		Email:       d.Email,
		Username:    d.Username,
		Handle:      d.Handle,
		CreatedAt:   d.CreatedAt,
	}
}

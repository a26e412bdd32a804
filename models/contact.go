package models

import "time"

// Contact is a relationship-management record. Name and Description are
// encrypted with the owner's data key before they reach the store; the
// server only ever persists ciphertext in the ivHex(32)‖cipherHex field
// format produced by the DataEncrypter.
type Contact struct {
	// ContactID is the server-assigned identifier.
	ContactID int64 `json:"contactId"`

	// UserID is the owning account. Not exposed via JSON.
	UserID int64 `json:"-"`

	// Name holds the contact's name. Plaintext in API payloads,
	// ciphertext at rest.
	Name string `json:"name"`

	// Description holds free-form notes about the contact. Plaintext in
	// API payloads, ciphertext at rest.
	Description string `json:"desc"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the name of the database table
// associated with the Contact model.
func (c Contact) TableName() string {
	return "contacts"
}

// ContactUpdate describes a partial update of a contact record. Nil fields
// are left untouched; non-nil fields carry ciphertext ready for storage.
type ContactUpdate struct {
	ContactID   int64
	UserID      int64
	Name        *string
	Description *string
}

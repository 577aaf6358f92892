package users

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// User is a single account document. The username doubles as the
// document key, so no two records can share one.
type User struct {
	Username     string     `bson:"_id" json:"username"`
	PasswordHash string     `bson:"password" json:"-"`
	IsActive     bool       `bson:"is_active" json:"is_active"`
	Email        string     `bson:"email,omitempty" json:"email,omitempty"`
	FullName     string     `bson:"full_name,omitempty" json:"full_name,omitempty"`
	CreatedAt    *time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt    *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Validate will validate the record
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&u.PasswordHash, validation.Required),
		validation.Field(&u.Email, is.Email),
		validation.Field(&u.FullName, validation.Length(0, 200)),
	)
}

// TokenData is the transient projection of a validated token's claims.
// It is never persisted; it is reconstructed on every validation.
type TokenData struct {
	Username string `json:"username"`
}

// Document field names. The username is stored as the document key.
const (
	fieldKey       = "_id"
	fieldUsername  = "username"
	fieldPassword  = "password"
	fieldIsActive  = "is_active"
	fieldEmail     = "email"
	fieldFullName  = "full_name"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

func userDocument(u *User) Document {
	doc := Document{
		fieldKey:      u.Username,
		fieldPassword: u.PasswordHash,
		fieldIsActive: u.IsActive,
	}

	if u.Email != "" {
		doc[fieldEmail] = u.Email
	}
	if u.FullName != "" {
		doc[fieldFullName] = u.FullName
	}
	if u.CreatedAt != nil {
		doc[fieldCreatedAt] = *u.CreatedAt
	}
	if u.UpdatedAt != nil {
		doc[fieldUpdatedAt] = *u.UpdatedAt
	}

	return doc
}

// decodeUser maps a raw store document onto a User. Missing or
// malformed required fields fail with a typed decode error instead of
// producing a partially populated record.
func decodeUser(doc Document) (*User, error) {
	if doc == nil {
		return nil, decodeError(fieldKey, doc)
	}

	username, ok := doc[fieldKey].(string)
	if !ok || username == "" {
		// Documents imported from stores that keep the key outside the
		// record carry the username as a plain field instead.
		username, ok = doc[fieldUsername].(string)
		if !ok || username == "" {
			return nil, decodeError(fieldUsername, doc)
		}
	}

	hash, ok := doc[fieldPassword].(string)
	if !ok || hash == "" {
		return nil, decodeError(fieldPassword, doc)
	}

	active, ok := doc[fieldIsActive].(bool)
	if !ok {
		return nil, decodeError(fieldIsActive, doc)
	}

	user := &User{
		Username:     username,
		PasswordHash: hash,
		IsActive:     active,
	}

	if email, ok := doc[fieldEmail].(string); ok {
		user.Email = email
	}
	if name, ok := doc[fieldFullName].(string); ok {
		user.FullName = name
	}
	if at, ok := doc[fieldCreatedAt].(time.Time); ok {
		user.CreatedAt = &at
	}
	if at, ok := doc[fieldUpdatedAt].(time.Time); ok {
		user.UpdatedAt = &at
	}

	return user, nil
}

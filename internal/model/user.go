package model

import "time"

// User represents an application user record as stored in the `users`
// table. The mentorship core only reads the flags below; profile editing
// lives outside of it. JSON tags are omitted because handlers define their
// own response shapes.
//
// Fields:
//  ID                – primary key identifier of the user.
//  Name              – display name.
//  Username          – unique login name.
//  Email             – unique email address.
//  PasswordHash      – bcrypt hashed password.
//  IsAdmin           – whether the user can manage admin rights.
//  AvailableToMentor – user accepts mentoring requests as a mentor.
//  NeedMentoring     – user is looking for a mentor.
//  IsEmailVerified   – email confirmation link was followed.
//  RegistrationDate  – timestamp of creation.
type User struct {
	ID                uint64    // users.id
	Name              string    // users.name
	Username          string    // users.username
	Email             string    // users.email
	PasswordHash      string    // users.password_hash
	IsAdmin           bool      // users.is_admin
	AvailableToMentor bool      // users.available_to_mentor
	NeedMentoring     bool      // users.need_mentoring
	IsEmailVerified   bool      // users.is_email_verified
	RegistrationDate  time.Time // users.registration_date
}

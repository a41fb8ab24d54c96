package models

// User is the signed-in user's profile.
type User struct {
	ID        ID     `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (u User) RecordID() ID { return u.ID }

func (u User) WithID(id ID) User {
	u.ID = id
	return u
}

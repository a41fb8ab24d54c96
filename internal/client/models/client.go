package models

import "strings"

type Client struct {
	ID        ID     `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (c Client) RecordID() ID { return c.ID }

func (c Client) WithID(id ID) Client {
	c.ID = id
	return c
}

// FullName joins first and last name.
func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

package models

import "time"

// UserView is the read projection of a user returned by every read endpoint.
// It never carries the password hash.
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserViews projects a slice of write models. The result is never nil so it
// always serialises as a JSON array.
func UserViews(users []User) []UserView {
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].ToView())
	}
	return views
}

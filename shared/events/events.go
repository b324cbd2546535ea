package events

import (
	"encoding/json"
	"fmt"
)

// UserCreatedQueue is the default queue carrying registration notifications.
const UserCreatedQueue = "user_created"

// UserCreatedMessage is the body published once per successful registration.
type UserCreatedMessage struct {
	Username string `json:"username"`
}

// EncodeUserCreated renders the UTF-8 JSON body for a user_created message.
func EncodeUserCreated(username string) ([]byte, error) {
	body, err := json.Marshal(UserCreatedMessage{Username: username})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return body, nil
}

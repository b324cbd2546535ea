package cqrs

type RegisterUserCommand struct {
	Username string
	Password string
}

// UpdateUserCommand changes the username and/or password of a user. Empty
// fields leave the stored value untouched.
type UpdateUserCommand struct {
	UserID   string
	Username string
	Password string
}

type DeleteUserCommand struct {
	UserID string
}

type LoginCommand struct {
	Username string
	Password string
}

type VerifyTokenCommand struct {
	Token string
}

package models

// User is the cached profile of the signed-in user. Only ID is interpreted
// by the client; it keys every collection query.
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	Phone          string `json:"phone,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	LastLoggedInAt string `json:"lastLoggedInAt,omitempty"`
}

// Registration is the sign-up form forwarded to the API as is.
type Registration struct {
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// RegisteredUser is returned by a successful registration.
type RegisteredUser struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// Credentials is the result of a successful login.
type Credentials struct {
	Token string `json:"auth_token"`
	User  *User  `json:"user"`
}

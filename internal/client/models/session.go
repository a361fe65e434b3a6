package models

// Session is the authentication state owned by the session controller.
// IsAuthenticated implies Token and User are set and the token had not
// expired when last checked.
type Session struct {
	Token           string
	User            *User
	IsAuthenticated bool
	IsLoading       bool
	LastError       string
}

// Clone returns a copy that shares nothing with s.
func (s Session) Clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// UserID returns the signed-in user's id or "".
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

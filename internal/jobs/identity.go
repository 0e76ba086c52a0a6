package jobs

// Identity is the caller: an authenticated user or an anonymous browser
// session. Exactly one field is set.
type Identity struct {
	UserID    string
	SessionID string
}

// UserIdentity returns an authenticated identity.
func UserIdentity(userID string) Identity {
	return Identity{UserID: userID}
}

// SessionIdentity returns an anonymous identity.
func SessionIdentity(sessionID string) Identity {
	return Identity{SessionID: sessionID}
}

// Anonymous reports whether the identity is session-backed.
func (id Identity) Anonymous() bool {
	return id.UserID == "" && id.SessionID != ""
}

// Valid reports whether exactly one side is set.
func (id Identity) Valid() bool {
	return (id.UserID != "") != (id.SessionID != "")
}

// Owner returns the owning id string.
func (id Identity) Owner() string {
	if id.UserID != "" {
		return id.UserID
	}
	return id.SessionID
}

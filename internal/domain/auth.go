package domain

// AuthContext is the caller identity handed to operations that require a
// signed-in session. It is built by the transport layer.
type AuthContext struct {
	UserID        string
	Authenticated bool
}

func (a AuthContext) Require() error {
	if !a.Authenticated || a.UserID == "" {
		return ErrUnauthorized
	}
	return nil
}

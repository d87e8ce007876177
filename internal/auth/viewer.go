package auth

// Viewer is the resolved identity for one request: either anonymous or an
// authenticated user plus the access token that authenticated them. It is
// constructed once per request, immutable, and never persisted.
type Viewer struct {
	user  *User
	token *AccessToken
}

// Anonymous returns the viewer for a request carrying no usable identity.
func Anonymous() Viewer {
	return Viewer{}
}

// Authenticated wraps a user and the token used to authenticate. Both copies
// are owned by the viewer, so later mutation of the arguments is harmless.
func Authenticated(user User, token AccessToken) Viewer {
	return Viewer{user: &user, token: &token}
}

// IsAuthenticated reports whether the viewer carries an identity.
func (v Viewer) IsAuthenticated() bool {
	return v.user != nil && v.token != nil
}

// User returns the authenticated user. ok is false for anonymous viewers;
// a viewer is never partially populated.
func (v Viewer) User() (User, bool) {
	if !v.IsAuthenticated() {
		return User{}, false
	}
	return *v.user, true
}

// AccessToken returns the token that authenticated this viewer.
func (v Viewer) AccessToken() (AccessToken, bool) {
	if !v.IsAuthenticated() {
		return AccessToken{}, false
	}
	return *v.token, true
}

// UserID is a convenience accessor; empty for anonymous viewers.
func (v Viewer) UserID() string {
	if !v.IsAuthenticated() {
		return ""
	}
	return v.user.ID
}

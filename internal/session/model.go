package session

// Role gates comment deletion: an Admin may delete any comment, a User
// only their own.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// User is the authenticated identity.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// CanDeleteComment reports whether the user may delete a comment written
// by author.
func (u User) CanDeleteComment(author string) bool {
	return u.Role == RoleAdmin || u.Name == author
}

// Session is the authenticated identity plus the token pair used to
// authorize API calls.
type Session struct {
	User         User   `json:"user"`
	SessionToken string `json:"sessionToken"`
	RefreshToken string `json:"refreshToken"`
}

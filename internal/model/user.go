package model

// User is a registered account. Two credential types map onto one record:
//
//   - Email/password: Email + PasswordHash are set, GitHubID is 0.
//   - GitHub OAuth:   GitHubID is set (GitHub's stable numeric user ID),
//     PasswordHash is empty, Email holds whatever GitHub exposes.
//
// PasswordHash carries the full bcrypt output (salt and cost embedded) and
// is never serialised — note the `json:"-"` tag.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PasswordHash string `json:"-"`
	GitHubID     int64  `json:"-"` // 0 when the account has no GitHub credential
	AvatarURL    string `json:"avatarUrl,omitempty"`
	CreatedAt    int64  `json:"createdAt"` // epoch milliseconds
	UpdatedAt    int64  `json:"updatedAt"`
}

// UserProfile is the identity view handed to the client: the fields the UI
// shows, nothing credential-related. It mirrors the current User record and
// is not persisted on its own.
type UserProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// Profile derives the client-facing profile from a user record.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt,
	}
}

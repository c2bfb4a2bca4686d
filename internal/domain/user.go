package domain

type User struct {
	ID        string  `db:"id"`
	Email     string  `db:"email"`
	Username  *string `db:"username"`
	Hash      string  `db:"password_hash"`
	CreatedAt string  `db:"created_at"`
	UpdatedAt string  `db:"updated_at"`
}

// UserSummary is the public view of a user embedded in other payloads.
type UserSummary struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Username *string `json:"username"`
}

// Profile is returned by registration and /auth/me.
type Profile struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Username  *string `json:"username"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Username: u.Username}
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Username: u.Username, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

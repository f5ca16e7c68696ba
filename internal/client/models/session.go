package models

// Session identifies the active user. It is passed explicitly into store and
// engine calls; there is no package-level current-user state. AccessToken is
// empty for sessions established offline.
type Session struct {
	UserID      string
	Email       string
	FullName    string
	AccessToken string
}

// Credential is the locally stored offline login material for one account.
// Only the salted argon2id hash is persisted, never the password.
type Credential struct {
	Email    string
	UserID   string
	FullName string
	Salt     []byte
	Hash     []byte
}

package domain

// Owner is the single resource owner. It lives in configuration and the
// secret store, not in the database.
type Owner struct {
	Email        string
	Subject      string
	PasswordHash string
	TOTPSecret   string // optional second factor
}

// RequiresOTP reports whether login needs a TOTP code.
func (o Owner) RequiresOTP() bool { return o.TOTPSecret != "" }

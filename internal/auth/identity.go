package auth

// Source records which credential produced an Identity.
type Source string

const (
	SourceBearer  Source = "bearer"
	SourceSession Source = "session"
)

// Identity is the normalized caller, produced fresh for every request by a
// resolver. It holds facts from the identity provider only, no decisions.
type Identity struct {
	Subject       string // provider subject (sub), e.g. "auth0|64f..."
	Email         string
	EmailVerified bool
	Name          string
	Source        Source
}

// DisplayName prefers the profile name and falls back to the email.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

package domain

// Identity is what a verified bearer token asserts about the caller.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// ExternalIdentity is a verified assertion from the external identity provider.
type ExternalIdentity struct {
	ID            string
	Email         string
	Name          string
	EmailVerified bool
}

package models

// Identity is the caller as supplied by the identity provider. Nil means anonymous.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IDPtr returns the identity id or nil for anonymous callers.
func (i *Identity) IDPtr() *string {
	if i == nil || i.ID == "" {
		return nil
	}
	id := i.ID
	return &id
}

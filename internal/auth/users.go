package auth

import (
	"fmt"
	"sync"
)

// User is one credentialed account. Role is either "admin" or "dpo".
type User struct {
	ID           string
	TenantID     string
	Role         string
	PasswordHash string
}

// Directory is an in-memory username → user index. It exists to back token
// issuance; durable user management lives outside this service.
type Directory struct {
	mu     sync.RWMutex
	users  map[string]User
	hasher *Hasher
}

// NewDirectory builds an empty directory. A nil hasher gets the default cost.
func NewDirectory(hasher *Hasher) *Directory {
	if hasher == nil {
		hasher = NewHasher(DefaultCost)
	}
	return &Directory{users: make(map[string]User), hasher: hasher}
}

// Put adds or replaces an account.
func (d *Directory) Put(username string, u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[username] = u
}

// Seed registers an account from a plaintext password. Intended for
// bootstrap and tests.
func (d *Directory) Seed(username, password string, u User) error {
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	d.Put(username, u)
	return nil
}

// Authenticate verifies the password for the account. Unknown usernames and
// wrong passwords return the same ErrBadCredential.
func (d *Directory) Authenticate(username, password string) (User, error) {
	d.mu.RLock()
	u, ok := d.users[username]
	d.mu.RUnlock()
	if !ok {
		// Burn a comparison anyway so unknown usernames cost the same.
		_ = d.hasher.Verify("$2a$12$000000000000000000000uGyUtvxGffliYOTZqIzYZVcWcez/rO2", password)
		return User{}, fmt.Errorf("%w: unknown user", ErrBadCredential)
	}
	if err := d.hasher.Verify(u.PasswordHash, password); err != nil {
		return User{}, err
	}
	return u, nil
}

package accounts

import (
	"fmt"

	"github.com/elskow/authguard/internal/config"
	"github.com/elskow/authguard/internal/credential"
)

// FromSeed hashes each seed user's password under a fresh salt.
func FromSeed(seed []config.SeedUser, verifier *credential.Verifier) ([]Account, error) {
	list := make([]Account, 0, len(seed))
	for _, u := range seed {
		if u.Username == "" {
			return nil, fmt.Errorf("%w: seed user without username", ErrInvalidAccount)
		}
		salt, err := credential.NewSalt()
		if err != nil {
			return nil, err
		}
		list = append(list, Account{
			Username:     u.Username,
			Salt:         salt,
			PasswordHash: verifier.Hash(u.Password, salt),
		})
	}
	return list, nil
}

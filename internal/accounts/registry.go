package accounts

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrDuplicateAccount = errors.New("duplicate account")
	ErrInvalidAccount   = errors.New("invalid account")
)

// Registry is the read-only set of known accounts. It is safe for
// concurrent use because nothing writes to it after NewRegistry returns.
type Registry struct {
	accounts map[string]Account
}

func NewRegistry(list []Account) (*Registry, error) {
	accounts := make(map[string]Account, len(list))
	for _, a := range list {
		if a.Username == "" {
			return nil, fmt.Errorf("%w: empty username", ErrInvalidAccount)
		}
		if len(a.Salt) == 0 || len(a.PasswordHash) == 0 {
			return nil, fmt.Errorf("%w: %s has no salt or hash", ErrInvalidAccount, a.Username)
		}
		if _, exists := accounts[a.Username]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, a.Username)
		}
		accounts[a.Username] = a.clone()
	}
	return &Registry{accounts: accounts}, nil
}

func (r *Registry) Lookup(username string) (Account, bool) {
	a, ok := r.accounts[username]
	if !ok {
		return Account{}, false
	}
	return a.clone(), true
}

// List returns copies of every account ordered by username.
func (r *Registry) List() []Account {
	list := make([]Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		list = append(list, a.clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Username < list[j].Username
	})
	return list
}

func (r *Registry) Len() int {
	return len(r.accounts)
}

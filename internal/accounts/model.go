package accounts

import (
	"bytes"
	"time"
)

// Account is a known username with its salt and PBKDF2 digest. Accounts are
// never mutated after the registry is built.
type Account struct {
	Username     string `gorm:"primaryKey"`
	Salt         []byte `gorm:"not null"`
	PasswordHash []byte `gorm:"not null"`
	CreatedAt    time.Time
}

func (Account) TableName() string {
	return "accounts"
}

func (a Account) clone() Account {
	return Account{
		Username:     a.Username,
		Salt:         bytes.Clone(a.Salt),
		PasswordHash: bytes.Clone(a.PasswordHash),
		CreatedAt:    a.CreatedAt,
	}
}

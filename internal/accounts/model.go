package accounts

import "time"

// Account is a registered user credential record. Domain documents reference
// accounts by username only; there is no database-level link.
type Account struct {
	Username     string    `gorm:"column:username;primaryKey;size:190;not null"`
	PasswordHash string    `gorm:"column:password_hash;size:190;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing registered accounts.
func (Account) TableName() string {
	return "accounts"
}

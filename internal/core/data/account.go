package data

import (
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// Account contains the login information specific to each registered player.
type Account struct {
	ID               uint64 `gorm:"primaryKey"`
	Username         string `gorm:"unique; not null"`
	Password         string `gorm:"not null"`
	Email            string `gorm:"unique"`
	RegistrationDate time.Time
	Banned           bool `gorm:"default:false"`
	Active           bool `gorm:"default:true"`
	// LastActiveAt is the epoch-millisecond timestamp of the account's most
	// recent disconnect, written by connection cleanup.
	LastActiveAt int64
}

// PlayerID is the stable identifier tasks and presence records are keyed by.
func (a *Account) PlayerID() string {
	return strconv.FormatUint(a.ID, 10)
}

// FindAccountByUsername searches for an account with the specified username,
// returning the *Account instance if found or nil if there is no match.
func FindAccountByUsername(db *gorm.DB, username string) (*Account, error) {
	var account Account
	err := db.Where("username = ?", username).First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// CreateAccount persists the Account record to the database.
func CreateAccount(db *gorm.DB, account *Account) error {
	return db.Create(account).Error
}

// DeleteAccount deletes an Account record from the database.
func DeleteAccount(db *gorm.DB, account *Account) error {
	return db.Delete(account).Error
}

// UpdateLastActive stamps the account identified by playerID with its last
// activity time in epoch milliseconds.
func UpdateLastActive(db *gorm.DB, playerID string, timestampMillis int64) error {
	id, err := strconv.ParseUint(playerID, 10, 64)
	if err != nil {
		return errors.New("malformed player id: " + playerID)
	}
	return db.Model(&Account{}).Where("id = ?", id).
		Update("last_active_at", timestampMillis).Error
}

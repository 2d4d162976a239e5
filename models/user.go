package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderApple    = "apple"
)

type User struct {
	gorm.Model
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `json:"-"`
	GoogleID     *string `gorm:"index" json:"-"`
	AppleID      *string `gorm:"index" json:"-"`

	Name          string                      `json:"name"`
	Goal          string                      `json:"goal"`
	Period        datatypes.JSONSlice[int]    `json:"period"`
	AvatarURL     string                      `json:"avatarUrl,omitempty"`
	AuthProviders datatypes.JSONSlice[string] `json:"authProviders"`
	IsFirstRender bool                        `gorm:"default:true" json:"isFirstRender"`

	ResetToken    string    `json:"-"`
	ResetTokenExp time.Time `json:"-"`
}

func (u *User) HasProvider(provider string) bool {
	for _, p := range u.AuthProviders {
		if p == provider {
			return true
		}
	}
	return false
}

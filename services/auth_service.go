package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Evgenija-P/inFeely-server/config"
	"github.com/Evgenija-P/inFeely-server/models"
	"github.com/Evgenija-P/inFeely-server/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const resetTokenTTL = 15 * time.Minute

func RegisterUser(email, password, name, goal string, period []int, isFirstRender *bool) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing models.User
	err := config.DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	first := true
	if isFirstRender != nil {
		first = *isFirstRender
	}

	user := models.User{
		Email:         email,
		PasswordHash:  hash,
		Name:          name,
		Goal:          goal,
		Period:        datatypes.JSONSlice[int](period),
		AuthProviders: datatypes.JSONSlice[string]{models.ProviderPassword},
		IsFirstRender: first,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func AuthenticateUser(email, password string) (*models.User, error) {
	user, err := FindUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" || !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := config.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func FindUserByID(id uint) (*models.User, error) {
	var user models.User
	err := config.DB.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertOAuthUser links a verified provider identity to an account,
// creating one when the email is new. An identity without an email
// (Apple hides it after the first sign-in) falls back to the stable
// provider subject.
func UpsertOAuthUser(identity *Identity, provider string) (*models.User, error) {
	if identity.Email == "" {
		if provider != models.ProviderApple {
			return nil, errors.New("email missing from identity token")
		}
		var user models.User
		err := config.DB.Where("apple_id = ?", identity.Subject).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, err
		}
		return &user, nil
	}

	var user models.User
	err := config.DB.Where("email = ?", identity.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:         identity.Email,
			Name:          identity.Name,
			AvatarURL:     identity.Picture,
			AuthProviders: datatypes.JSONSlice[string]{provider},
			IsFirstRender: true,
		}
		setProviderID(&user, provider, identity.Subject)
		if err := config.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	setProviderID(&user, provider, identity.Subject)
	if !user.HasProvider(provider) {
		user.AuthProviders = append(user.AuthProviders, provider)
	}
	if user.Name == "" {
		user.Name = identity.Name
	}
	if user.AvatarURL == "" {
		user.AvatarURL = identity.Picture
	}
	if err := config.DB.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func setProviderID(user *models.User, provider, subject string) {
	switch provider {
	case models.ProviderGoogle:
		if user.GoogleID == nil {
			user.GoogleID = &subject
		}
	case models.ProviderApple:
		if user.AppleID == nil {
			user.AppleID = &subject
		}
	}
}

// StartPasswordReset issues a short-lived reset code and mails it.
// An unknown email is not an error — callers answer the same either
// way to avoid account enumeration.
func StartPasswordReset(email string) error {
	user, err := FindUserByEmail(email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	user.ResetToken = utils.GenerateRandomToken(6)
	user.ResetTokenExp = time.Now().Add(resetTokenTTL)
	if err := config.DB.Save(user).Error; err != nil {
		return err
	}

	return utils.SendResetEmail(user.Email, user.ResetToken)
}

func CompletePasswordReset(token, newPassword string) error {
	var user models.User
	err := config.DB.Where("reset_token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return err
	}
	if user.ResetToken == "" || time.Now().After(user.ResetTokenExp) {
		return ErrResetTokenInvalid
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetTokenExp = time.Time{}
	if !user.HasProvider(models.ProviderPassword) {
		user.AuthProviders = append(user.AuthProviders, models.ProviderPassword)
	}
	return config.DB.Save(&user).Error
}

type ProfileUpdateRequest struct {
	Name          *string `json:"name"`
	Goal          *string `json:"goal"`
	Period        []int   `json:"period" binding:"omitempty,len=2"`
	IsFirstRender *bool   `json:"isFirstRender"`
	Avatar        string  `json:"avatar"` // base64 data URL
}

func UpdateProfile(ctx context.Context, userID uint, req *ProfileUpdateRequest, uploader ImageUploader) (*models.User, error) {
	user, err := FindUserByID(userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Goal != nil {
		user.Goal = *req.Goal
	}
	if len(req.Period) == 2 {
		user.Period = datatypes.JSONSlice[int](req.Period)
	}
	if req.IsFirstRender != nil {
		user.IsFirstRender = *req.IsFirstRender
	}
	if req.Avatar != "" {
		uctx, cancel := context.WithTimeout(ctx, imageUploadTimeout)
		defer cancel()
		url, err := uploader.Upload(uctx, req.Avatar)
		if err != nil {
			return nil, err
		}
		user.AvatarURL = url
	}

	if err := config.DB.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

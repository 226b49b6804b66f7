package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/logger"
	"investtrack/internal/mail"
	"investtrack/internal/models"
	"investtrack/internal/validator"
)

// ResetTokenTTL is how long a password reset code stays valid.
const ResetTokenTTL = time.Hour

// MaxOTPAttempts is how many wrong codes a reset token survives.
const MaxOTPAttempts = 5

const weakPasswordMessage = "password must be at least 8 characters with upper-case, lower-case, digit and special characters"

// userService handles user-related business logic.
type userService struct {
	db             *gorm.DB
	files          *Attachments
	mailer         mail.Mailer
	bootstrapAdmin string
	now            func() time.Time
}

// NewUserService creates a new UserServicer. The first user to register, or
// the one registering with bootstrapAdmin, becomes an admin.
func NewUserService(db *gorm.DB, files *Attachments, mailer mail.Mailer, bootstrapAdmin string) UserServicer {
	return &userService{
		db:             db,
		files:          files,
		mailer:         mailer,
		bootstrapAdmin: strings.ToLower(strings.TrimSpace(bootstrapAdmin)),
		now:            time.Now,
	}
}

// Register creates a new user account.
func (s *userService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	var fields []apperrors.FieldError
	if name == "" {
		fields = append(fields, apperrors.FieldError{Field: "name", Message: "name is required"})
	}
	if email == "" {
		fields = append(fields, apperrors.FieldError{Field: "email", Message: "email is required"})
	}
	if !validator.IsStrongPassword(password) {
		fields = append(fields, apperrors.FieldError{Field: "password", Message: weakPasswordMessage})
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields...)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:    email,
		Name:     name,
		Password: string(hashedPassword),
		Role:     models.RoleMember,
		Avatar:   models.DefaultAvatar,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRegistrations(tx); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateEmail
		}

		if email == s.bootstrapAdmin {
			user.Role = models.RoleAdmin
		} else {
			var total int64
			if err := tx.Model(&models.User{}).Count(&total).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if total == 0 {
				user.Role = models.RoleAdmin
			}
		}

		if err := tx.Create(user).Error; err != nil {
			if apperrors.IsUniqueViolation(err) {
				return apperrors.ErrDuplicateEmail
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// registrationLockKey identifies the advisory lock held while a user is
// registered.
const registrationLockKey int64 = 0x696e7672656769

// lockRegistrations serializes registrations until tx ends so that only one
// of two concurrent first sign-ups can see an empty users table. SQLite
// already serializes writers and has no advisory locks.
func lockRegistrations(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", registrationLockKey).Error
}

func (s *userService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// Login verifies credentials and records the login time.
func (s *userService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(user).Update("last_login_at", now).Error; err != nil {
		logger.FromContext(ctx).Warnw("failed to record login time", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now
	return user, nil
}

// GetUserByID retrieves a user with the firms they created.
func (s *userService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Firms").First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// UpdateProfile changes the user's name and avatar. The avatar must be an
// image and is stored inline as a data URI.
func (s *userService) UpdateProfile(ctx context.Context, id string, name *string, avatar *Upload) (*models.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperrors.Validation(apperrors.FieldError{Field: "name", Message: "name is required"})
		}
		updates["name"] = trimmed
		user.Name = trimmed
	}
	if avatar != nil {
		mt, err := s.files.inspect(avatar, true)
		if err != nil {
			return nil, err
		}
		uri := "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(avatar.Data)
		updates["avatar"] = uri
		user.Avatar = uri
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

// UpdateRole changes a user's role. It takes effect at their next login.
func (s *userService) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, apperrors.Validation(apperrors.FieldError{Field: "role", Message: "role must be admin or member"})
	}
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("role", role).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.Role = role
	return user, nil
}

// ChangePassword replaces the password after checking the old one.
func (s *userService) ChangePassword(ctx context.Context, id, oldPassword, newPassword, confirmPassword string) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidCredentials, "Invalid old password")
	}
	if err := checkNewPassword(newPassword, confirmPassword); err != nil {
		return err
	}
	return s.setPassword(s.db.WithContext(ctx), user.ID, newPassword)
}

func checkNewPassword(password, confirm string) error {
	var fields []apperrors.FieldError
	if !validator.IsStrongPassword(password) {
		fields = append(fields, apperrors.FieldError{Field: "password", Message: weakPasswordMessage})
	}
	if password != confirm {
		fields = append(fields, apperrors.FieldError{Field: "confirm_password", Message: "passwords do not match"})
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}

func (s *userService) setPassword(db *gorm.DB, userID, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", userID).Update("password", string(hashed)).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// generateOTP returns a uniformly distributed 6-digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ForgotPassword issues a reset code, replacing any outstanding one, and
// mails it to the user.
func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	otp, err := generateOTP()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Token{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.Token{
			UserID:    user.ID,
			TokenHash: string(hash),
			ExpiresAt: s.now().Add(ResetTokenTTL),
		}).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: "Password reset code",
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>Your password reset code is <strong>%s</strong>. It expires in %d minutes.</p>",
			template.HTMLEscapeString(user.Name), otp, int(ResetTokenTTL.Minutes())),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// checkOTP returns the user and token matching email and otp. Each wrong
// guess is counted against the token, which is dropped after MaxOTPAttempts.
func (s *userService) checkOTP(ctx context.Context, email, otp string) (*models.User, *models.Token, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, nil, apperrors.ErrInvalidResetToken
		}
		return nil, nil, err
	}

	var (
		token    models.Token
		rejected error
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", user.ID).
			First(&token).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rejected = apperrors.ErrInvalidResetToken
				return nil
			}
			return err
		}
		if token.Expired(s.now()) {
			rejected = apperrors.ErrInvalidResetToken
			return nil
		}
		if bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(strings.TrimSpace(otp))) == nil {
			return nil
		}

		// The failed guess is committed even though the call fails.
		token.Attempts++
		if token.Attempts >= MaxOTPAttempts {
			rejected = apperrors.WithMessage(apperrors.ErrInvalidResetToken,
				"Too many incorrect codes, request a new one")
			return tx.Delete(&models.Token{}, "id = ?", token.ID).Error
		}
		rejected = apperrors.ErrInvalidResetToken
		return tx.Model(&models.Token{}).Where("id = ?", token.ID).UpdateColumn("attempts", token.Attempts).Error
	})
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if rejected != nil {
		return nil, nil, rejected
	}
	return user, &token, nil
}

// VerifyOTP checks a reset code without consuming it.
func (s *userService) VerifyOTP(ctx context.Context, email, otp string) error {
	_, _, err := s.checkOTP(ctx, email, otp)
	return err
}

// ResetPassword consumes a reset code and sets a new password. The
// confirmation mail is best effort.
func (s *userService) ResetPassword(ctx context.Context, email, otp, password string) error {
	if !validator.IsStrongPassword(password) {
		return apperrors.Validation(apperrors.FieldError{Field: "password", Message: weakPasswordMessage})
	}
	user, token, err := s.checkOTP(ctx, email, otp)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.setPassword(tx, user.ID, password); err != nil {
			return err
		}
		if err := tx.Delete(&models.Token{}, "id = ?", token.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: "Your password has been changed",
		HTML:    fmt.Sprintf("<p>Hi %s,</p><p>Your password was reset successfully.</p>", template.HTMLEscapeString(user.Name)),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		logger.FromContext(ctx).Warnw("failed to send password reset confirmation", "user_id", user.ID, "error", err)
	}
	return nil
}

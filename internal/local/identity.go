package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/internal/session"
	authentication "github.com/Alwanly/social-hub/pkg/auth"
	"github.com/Alwanly/social-hub/pkg/logger"
)

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
	minPasswordLength = 6
)

// Identity is a password identity provider on the local database. Access
// tokens are HS256 JWTs; refresh tokens are opaque and rotate on use.
type Identity struct {
	db         *gorm.DB
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        *logger.CanonicalLogger
	now        func() time.Time
}

func NewIdentity(db *gorm.DB, secret []byte, log *logger.CanonicalLogger) *Identity {
	if log == nil {
		log = logger.NewNop()
	}
	return &Identity{
		db:         db,
		secret:     secret,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		log:        log.Component("local_identity"),
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (i *Identity) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*session.Session, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: email and a password of at least %d characters are required", session.ErrInvalidCredentials, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var s *session.Session
	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.AuthUser{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return session.ErrEmailTaken
		}
		user := &models.AuthUser{Email: email, PasswordHash: string(hash), Metadata: metadata}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return session.ErrEmailTaken
			}
			return err
		}
		s, err = i.issue(tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (i *Identity) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	var user models.AuthUser
	err := i.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, session.ErrInvalidCredentials
	}
	return i.issue(i.db.WithContext(ctx), &user)
}

// SignOut revokes every refresh token of the token's user.
func (i *Identity) SignOut(ctx context.Context, accessToken string) error {
	claims, err := i.verify(accessToken)
	if err != nil {
		return err
	}
	return i.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", claims.UserID(), false).
		Update("revoked", true).Error
}

// Recover has no mail transport locally; the request is logged and always
// succeeds so callers cannot probe for accounts.
func (i *Identity) Recover(ctx context.Context, email string) error {
	i.log.Info("password recovery requested", logger.String("email", normalizeEmail(email)))
	return nil
}

func (i *Identity) UpdateUser(ctx context.Context, accessToken string, attrs session.UserAttributes) (*session.User, error) {
	claims, err := i.verify(accessToken)
	if err != nil {
		return nil, err
	}

	var user models.AuthUser
	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", claims.UserID()).Take(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return session.ErrUnauthorized
			}
			return err
		}
		if attrs.Email != "" {
			email := normalizeEmail(attrs.Email)
			var count int64
			if err := tx.Model(&models.AuthUser{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return session.ErrEmailTaken
			}
			user.Email = email
		}
		if attrs.Password != "" {
			if len(attrs.Password) < minPasswordLength {
				return fmt.Errorf("%w: password too short", session.ErrInvalidCredentials)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(attrs.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user.PasswordHash = string(hash)
		}
		if len(attrs.Metadata) > 0 {
			if user.Metadata == nil {
				user.Metadata = map[string]any{}
			}
			for k, v := range attrs.Metadata {
				user.Metadata[k] = v
			}
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	u := toSessionUser(&user)
	return &u, nil
}

func (i *Identity) GetUser(ctx context.Context, accessToken string) (*session.User, error) {
	claims, err := i.verify(accessToken)
	if err != nil {
		return nil, err
	}
	var user models.AuthUser
	if err := i.db.WithContext(ctx).Where("id = ?", claims.UserID()).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrUnauthorized
		}
		return nil, err
	}
	u := toSessionUser(&user)
	return &u, nil
}

// Refresh exchanges a live refresh token for a new session and revokes it.
func (i *Identity) Refresh(ctx context.Context, refreshToken string) (*session.Session, error) {
	var s *session.Session
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		err := tx.Where("token = ? AND revoked = ?", refreshToken, false).Take(&rt).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.ErrUnauthorized
		}
		if err != nil {
			return err
		}
		if !rt.ExpiresAt.After(i.now()) {
			return session.ErrUnauthorized
		}
		if err := tx.Model(&rt).Update("revoked", true).Error; err != nil {
			return err
		}
		var user models.AuthUser
		if err := tx.Where("id = ?", rt.UserID).Take(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return session.ErrUnauthorized
			}
			return err
		}
		s, err = i.issue(tx, &user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (i *Identity) verify(accessToken string) (*authentication.Claims, error) {
	claims, err := authentication.Verify(i.secret, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrUnauthorized, err)
	}
	return claims, nil
}

func (i *Identity) issue(tx *gorm.DB, user *models.AuthUser) (*session.Session, error) {
	now := i.now()
	access, err := authentication.Sign(i.secret, user.ID, user.Email, i.accessTTL, now)
	if err != nil {
		return nil, err
	}
	rt := &models.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(i.refreshTTL),
	}
	if err := tx.Create(rt).Error; err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &session.Session{
		AccessToken:  access,
		RefreshToken: rt.Token,
		ExpiresAt:    now.Add(i.accessTTL).Truncate(time.Second),
		User:         toSessionUser(user),
	}, nil
}

func toSessionUser(u *models.AuthUser) session.User {
	return session.User{ID: u.ID, Email: u.Email, Metadata: u.Metadata}
}

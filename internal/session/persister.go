package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Alwanly/social-hub/internal/models"
	"gorm.io/gorm"
)

const currentSessionID = "current"

// MemoryPersister keeps the session for the life of the process.
type MemoryPersister struct {
	mu      sync.Mutex
	session *Session
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (p *MemoryPersister) Load(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.clone(), nil
}

func (p *MemoryPersister) Save(ctx context.Context, s *Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = s.clone()
	return nil
}

func (p *MemoryPersister) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = nil
	return nil
}

// GormPersister keeps the session in a single sessions row.
type GormPersister struct {
	db *gorm.DB
}

func NewGormPersister(db *gorm.DB) *GormPersister {
	return &GormPersister{db: db}
}

func (p *GormPersister) Load(ctx context.Context) (*Session, error) {
	var rec models.SessionRecord
	err := p.db.WithContext(ctx).Where("id = ?", currentSessionID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &Session{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
		User: User{
			ID:       rec.UserID,
			Email:    rec.Email,
			Metadata: rec.Metadata,
		},
	}, nil
}

func (p *GormPersister) Save(ctx context.Context, s *Session) error {
	rec := models.SessionRecord{
		ID:           currentSessionID,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		UserID:       s.User.ID,
		Email:        s.User.Email,
		Metadata:     s.User.Metadata,
	}
	if err := p.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (p *GormPersister) Clear(ctx context.Context) error {
	if err := p.db.WithContext(ctx).Where("id = ?", currentSessionID).Delete(&models.SessionRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

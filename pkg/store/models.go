package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type WalkRequestModel struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"not null;index"`
	Date        string `gorm:"not null"`
	StartTime   string `gorm:"not null"`
	EndTime     string `gorm:"not null"`
	Address     string `gorm:"not null"`
	Walker      string `gorm:"not null"`
	Status      string `gorm:"not null"`
	IsCompleted bool   `gorm:"not null"`
	Pet         datatypes.JSON
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type ChatMessageModel struct {
	ID        string    `gorm:"primaryKey"`
	RequestID string    `gorm:"not null;index:idx_chat_transcript"`
	Walker    string    `gorm:"not null;index:idx_chat_transcript"`
	Sender    string    `gorm:"not null"`
	Text      string    `gorm:"not null"`
	SentAt    time.Time `gorm:"not null;index"`
}

type RatingModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	Kind      string    `gorm:"not null"`
	RequestID string    `gorm:"index"`
	Stars     int       `gorm:"not null"`
	Comment   string
	CreatedAt time.Time `gorm:"not null"`
}

type WalkerApplicationModel struct {
	ID          string    `gorm:"primaryKey"`
	UserID      string    `gorm:"not null;index"`
	Phone       string    `gorm:"not null"`
	Description string    `gorm:"not null"`
	DocumentKey string    `gorm:"not null"`
	Status      string    `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

package store

import (
	"errors"

	"petwalk/pkg/domain"
)

// ErrDuplicate is returned by CreateUser when the email or username is
// already taken.
var ErrDuplicate = errors.New("record already exists")

// Store defines persistence operations for users, walk requests, chats,
// ratings, and walker applications.
type Store interface {
	// users
	CreateUser(domain.User) error
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	HasUsername(username string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)

	// walk requests
	SaveRequest(domain.WalkRequest) error
	GetRequest(id string) (domain.WalkRequest, bool, error)
	ListRequestsByOwner(ownerID string) ([]domain.WalkRequest, error)
	DeleteRequest(id string) error

	// chat transcripts, keyed by (request id, walker name)
	AppendMessage(domain.ChatMessage) error
	ListMessages(requestID, walker string) ([]domain.ChatMessage, error)

	// ratings
	SaveRating(domain.Rating) error
	ListRatingsByUser(userID string) ([]domain.Rating, error)
	ListRatingsByRequest(requestID string) ([]domain.Rating, error)

	// walker applications
	SaveApplication(domain.WalkerApplication) error
	GetApplication(id string) (domain.WalkerApplication, bool, error)
	GetApplicationByUser(userID string) (domain.WalkerApplication, bool, error)
	ListApplicationsByStatus(status domain.ApplicationStatus) ([]domain.WalkerApplication, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

package domain

import "time"

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleWalker   UserRole = "walker"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusConfirmed RequestStatus = "confirmed"
)

type Sender string

const (
	SenderUser   Sender = "user"
	SenderWalker Sender = "walker"
)

type RatingKind string

const (
	RatingWalk RatingKind = "walk"
	RatingApp  RatingKind = "app"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Pet carries the optional pet details captured by the request form.
type Pet struct {
	Name  string `json:"name"`
	Breed string `json:"breed,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type WalkRequest struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	Date        string        `json:"date"`
	StartTime   string        `json:"startTime"`
	EndTime     string        `json:"endTime"`
	Address     string        `json:"address"`
	Walker      string        `json:"walker"`
	Status      RequestStatus `json:"status"`
	IsCompleted bool          `json:"isCompleted"`
	Pet         *Pet          `json:"pet,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId"`
	Walker    string    `json:"walker"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sentAt"`
}

type Rating struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Kind      RatingKind `json:"kind"`
	RequestID string     `json:"requestId,omitempty"`
	Stars     int        `json:"stars"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type WalkerApplication struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Phone       string            `json:"phone"`
	Description string            `json:"description"`
	DocumentKey string            `json:"-"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

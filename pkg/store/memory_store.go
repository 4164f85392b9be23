package store

import (
	"sync"

	"petwalk/pkg/domain"
)

// MemoryStore keeps all records in-process. It is the default for tests and
// local runs without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User // key: user ID
	email     map[string]string      // email -> user ID
	username  map[string]string      // username -> user ID
	requests  map[string]domain.WalkRequest
	reqOrder  []string
	chats     map[chatKey][]domain.ChatMessage
	ratings   []domain.Rating
	apps      map[string]domain.WalkerApplication
	appsOrder []string
}

type chatKey struct {
	requestID string
	walker    string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		email:    make(map[string]string),
		username: make(map[string]string),
		requests: make(map[string]domain.WalkRequest),
		chats:    make(map[chatKey][]domain.ChatMessage),
		apps:     make(map[string]domain.WalkerApplication),
	}
}

// CreateUser inserts a new user. The uniqueness check and the insert run
// under one lock, so concurrent registrations cannot both pass.
func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.email[u.Email]; taken {
		return ErrDuplicate
	}
	if _, taken := m.username[u.Username]; taken {
		return ErrDuplicate
	}
	if _, exists := m.users[u.ID]; exists {
		return ErrDuplicate
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	m.username[u.Username] = u.ID
	return nil
}

// SaveUser replaces an existing user record. A new email or username may
// not collide with another user's.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, taken := m.email[u.Email]; taken && owner != u.ID {
		return ErrDuplicate
	}
	if owner, taken := m.username[u.Username]; taken && owner != u.ID {
		return ErrDuplicate
	}
	if prev, ok := m.users[u.ID]; ok {
		delete(m.email, prev.Email)
		delete(m.username, prev.Username)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	m.username[u.Username] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// HasUsername checks if username exists.
func (m *MemoryStore) HasUsername(username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.username[username]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// ListUsers returns all users.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	return res, nil
}

// SaveRequest stores or replaces a walk request and tracks insertion order.
func (m *MemoryStore) SaveRequest(r domain.WalkRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[r.ID]; !exists {
		m.reqOrder = append(m.reqOrder, r.ID)
	}
	m.requests[r.ID] = r
	return nil
}

// GetRequest retrieves a walk request by ID.
func (m *MemoryStore) GetRequest(id string) (domain.WalkRequest, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	return r, ok, nil
}

// ListRequestsByOwner returns the owner's requests in insertion order.
func (m *MemoryStore) ListRequestsByOwner(ownerID string) ([]domain.WalkRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.WalkRequest, 0, len(m.reqOrder))
	for _, id := range m.reqOrder {
		if r, ok := m.requests[id]; ok && r.OwnerID == ownerID {
			res = append(res, r)
		}
	}
	return res, nil
}

// DeleteRequest removes a walk request. Unknown IDs are a no-op.
// Chat transcripts are intentionally left in place.
func (m *MemoryStore) DeleteRequest(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, id)
	filtered := m.reqOrder[:0]
	for _, item := range m.reqOrder {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.reqOrder = filtered
	return nil
}

// AppendMessage records a message in the (request, walker) transcript.
func (m *MemoryStore) AppendMessage(msg domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := chatKey{requestID: msg.RequestID, walker: msg.Walker}
	m.chats[key] = append(m.chats[key], msg)
	return nil
}

// ListMessages returns the transcript for (request, walker) in append order.
func (m *MemoryStore) ListMessages(requestID, walker string) ([]domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.chats[chatKey{requestID: requestID, walker: walker}]
	res := make([]domain.ChatMessage, len(msgs))
	copy(res, msgs)
	return res, nil
}

// SaveRating appends a rating.
func (m *MemoryStore) SaveRating(r domain.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings = append(m.ratings, r)
	return nil
}

// ListRatingsByUser returns ratings submitted by a user.
func (m *MemoryStore) ListRatingsByUser(userID string) ([]domain.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Rating
	for _, r := range m.ratings {
		if r.UserID == userID {
			res = append(res, r)
		}
	}
	return res, nil
}

// ListRatingsByRequest returns ratings attached to a walk request.
func (m *MemoryStore) ListRatingsByRequest(requestID string) ([]domain.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Rating
	for _, r := range m.ratings {
		if r.RequestID == requestID {
			res = append(res, r)
		}
	}
	return res, nil
}

// SaveApplication stores or replaces a walker application.
func (m *MemoryStore) SaveApplication(a domain.WalkerApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.apps[a.ID]; !exists {
		m.appsOrder = append(m.appsOrder, a.ID)
	}
	m.apps[a.ID] = a
	return nil
}

// GetApplication retrieves a walker application by ID.
func (m *MemoryStore) GetApplication(id string) (domain.WalkerApplication, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.apps[id]
	return a, ok, nil
}

// GetApplicationByUser returns the most recent application for a user.
func (m *MemoryStore) GetApplicationByUser(userID string) (domain.WalkerApplication, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.appsOrder) - 1; i >= 0; i-- {
		if a, ok := m.apps[m.appsOrder[i]]; ok && a.UserID == userID {
			return a, true, nil
		}
	}
	return domain.WalkerApplication{}, false, nil
}

// ListApplicationsByStatus returns applications filtered by status in insertion order.
func (m *MemoryStore) ListApplicationsByStatus(status domain.ApplicationStatus) ([]domain.WalkerApplication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.WalkerApplication, 0, len(m.appsOrder))
	for _, id := range m.appsOrder {
		if a, ok := m.apps[id]; ok && a.Status == status {
			res = append(res, a)
		}
	}
	return res, nil
}

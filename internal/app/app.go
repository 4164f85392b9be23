package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"petwalk/internal/chat"
	"petwalk/internal/events"
	"petwalk/internal/util"
	"petwalk/pkg/auth"
	"petwalk/pkg/domain"
	"petwalk/pkg/queue"
	"petwalk/pkg/storage"
	"petwalk/pkg/store"
)

const dateLayout = "2006-01-02"

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	SessionStrategy string
	SessionTTL      time.Duration
	JWTSecret       string
	ReplyDelay      time.Duration
	AMQPURL         string
	AMQPExchange    string

	Store    store.Store
	Sessions store.SessionStore
	Objects  storage.ObjectStore
	Events   *events.Publisher
	Replies  chat.DelayQueue
}

// App is the core application service wiring storage, sessions, chat
// simulation, document storage, and event publishing together.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	objects   storage.ObjectStore
	events    *events.Publisher
	responder *chat.Responder
}

// New constructs the application, building default backends for anything
// not injected through cfg.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL != "" {
			var err error
			dataStore, err = store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
		} else {
			dataStore = store.NewMemoryStore()
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch strings.ToLower(strings.TrimSpace(cfg.SessionStrategy)) {
		case "redis":
			if strings.TrimSpace(cfg.RedisAddr) == "" {
				return nil, fmt.Errorf("redisAddr is required for redis session strategy")
			}
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		default:
			var err error
			sessionStore, err = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
			if err != nil {
				return nil, fmt.Errorf("init jwt session store: %w", err)
			}
		}
	}

	publisher := cfg.Events
	if publisher == nil {
		var err error
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
	}

	replies := cfg.Replies
	if replies == nil && strings.TrimSpace(cfg.RedisAddr) != "" {
		q, err := queue.NewRedisDelayQueue(cfg.RedisAddr, cfg.RedisPassword, "petwalk:chat:replies", 0)
		if err != nil {
			return nil, fmt.Errorf("init reply queue: %w", err)
		}
		replies = q
	}

	return &App{
		store:     dataStore,
		sessions:  sessionStore,
		objects:   cfg.Objects,
		events:    publisher,
		responder: chat.NewResponder(dataStore, replies, cfg.ReplyDelay),
	}, nil
}

// Run binds background work (simulated walker replies) to ctx.
func (a *App) Run(ctx context.Context) {
	a.responder.Run(ctx)
}

// Close releases the event publisher connection.
func (a *App) Close() error {
	return a.events.Close()
}

// Register creates a user after running the validation rules in order,
// then issues a session (registration logs the user in).
func (a *App) Register(username, email, password, confirmPassword string) (domain.User, string, error) {
	if !validateUsername(username) {
		return domain.User{}, "", ErrUsernameLength
	}
	email = strings.TrimSpace(email)
	if !validateEmail(email) {
		return domain.User{}, "", ErrEmailFormat
	}
	if !validatePasswords(password, confirmPassword) {
		return domain.User{}, "", ErrPasswordMismatch
	}
	username = strings.TrimSpace(username)

	emailTaken, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	nameTaken, err := a.store.HasUsername(username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check username: %w", err)
	}
	if emailTaken || nameTaken {
		return domain.User{}, "", ErrUserExists
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The store enforces uniqueness atomically; the pre-checks above only
	// give the common case a friendly short-circuit.
	if err := a.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, "", ErrUserExists
		}
		return domain.User{}, "", fmt.Errorf("create user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token. Any mismatch
// yields the same error.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(email)
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Logout invalidates a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a session token against the user directory, so a
// stale session can never diverge from the stored user.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// BecomeWalker flips the user's role to walker in the directory.
func (a *App) BecomeWalker(user domain.User) (domain.User, error) {
	user.Role = domain.RoleWalker
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("update role: %w", err)
	}
	return user, nil
}

// RequestInput carries the walk request form fields.
type RequestInput struct {
	Date      string      `json:"date"`
	StartTime string      `json:"startTime"`
	EndTime   string      `json:"endTime"`
	Address   string      `json:"address"`
	Walker    string      `json:"walker"`
	Pet       *domain.Pet `json:"pet,omitempty"`
}

func (in RequestInput) validate() error {
	if strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Address) == "" || strings.TrimSpace(in.Walker) == "" {
		return ErrRequestIncomplete
	}
	if _, err := time.Parse(dateLayout, strings.TrimSpace(in.Date)); err != nil {
		return ErrDateFormat
	}
	return nil
}

// CreateRequest stores a new pending walk request for the user.
func (a *App) CreateRequest(user domain.User, in RequestInput) (domain.WalkRequest, error) {
	if err := in.validate(); err != nil {
		return domain.WalkRequest{}, err
	}
	now := time.Now().UTC()
	req := domain.WalkRequest{
		ID:        util.NewID(),
		OwnerID:   user.ID,
		Date:      strings.TrimSpace(in.Date),
		StartTime: strings.TrimSpace(in.StartTime),
		EndTime:   strings.TrimSpace(in.EndTime),
		Address:   strings.TrimSpace(in.Address),
		Walker:    strings.TrimSpace(in.Walker),
		Status:    domain.StatusPending,
		Pet:       in.Pet,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveRequest(req); err != nil {
		return domain.WalkRequest{}, fmt.Errorf("save request: %w", err)
	}
	a.events.Publish(context.Background(), events.RequestCreated, req)
	return req, nil
}

// UpdateRequest modifies an existing request owned by the user. Status and
// completion are not touched.
func (a *App) UpdateRequest(user domain.User, id string, in RequestInput) (domain.WalkRequest, error) {
	if err := in.validate(); err != nil {
		return domain.WalkRequest{}, err
	}
	req, ok, err := a.store.GetRequest(id)
	if err != nil {
		return domain.WalkRequest{}, fmt.Errorf("fetch request: %w", err)
	}
	if !ok {
		return domain.WalkRequest{}, ErrNotFound
	}
	if req.OwnerID != user.ID {
		return domain.WalkRequest{}, ErrForbidden
	}
	req.Date = strings.TrimSpace(in.Date)
	req.StartTime = strings.TrimSpace(in.StartTime)
	req.EndTime = strings.TrimSpace(in.EndTime)
	req.Address = strings.TrimSpace(in.Address)
	req.Walker = strings.TrimSpace(in.Walker)
	req.Pet = in.Pet
	req.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveRequest(req); err != nil {
		return domain.WalkRequest{}, fmt.Errorf("save request: %w", err)
	}
	return req, nil
}

// ListRequests partitions the user's requests by status. Requests with any
// other status appear in neither partition.
func (a *App) ListRequests(user domain.User) (pending, confirmed []domain.WalkRequest, err error) {
	all, err := a.store.ListRequestsByOwner(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list requests: %w", err)
	}
	pending = make([]domain.WalkRequest, 0, len(all))
	confirmed = make([]domain.WalkRequest, 0, len(all))
	for _, req := range all {
		switch req.Status {
		case domain.StatusPending:
			pending = append(pending, req)
		case domain.StatusConfirmed:
			confirmed = append(confirmed, req)
		}
	}
	return pending, confirmed, nil
}

// CancelRequest removes the user's request. Cancelling an unknown id is a
// no-op. The chat transcript is intentionally left behind.
func (a *App) CancelRequest(user domain.User, id string) error {
	req, ok, err := a.store.GetRequest(id)
	if err != nil {
		return fmt.Errorf("fetch request: %w", err)
	}
	if !ok {
		return nil
	}
	if req.OwnerID != user.ID {
		return ErrForbidden
	}
	if err := a.store.DeleteRequest(id); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	a.events.Publish(context.Background(), events.RequestCancelled, req)
	return nil
}

// ConfirmRequest flips a pending request to confirmed. Walker-role only.
func (a *App) ConfirmRequest(walker domain.User, id string) (domain.WalkRequest, error) {
	if walker.Role != domain.RoleWalker {
		return domain.WalkRequest{}, ErrForbidden
	}
	req, ok, err := a.store.GetRequest(id)
	if err != nil {
		return domain.WalkRequest{}, fmt.Errorf("fetch request: %w", err)
	}
	if !ok {
		return domain.WalkRequest{}, ErrNotFound
	}
	if req.Status != domain.StatusPending {
		// Already confirmed: idempotent, and no second event.
		return req, nil
	}
	req.Status = domain.StatusConfirmed
	req.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveRequest(req); err != nil {
		return domain.WalkRequest{}, fmt.Errorf("save request: %w", err)
	}
	a.events.Publish(context.Background(), events.RequestConfirmed, req)
	return req, nil
}

// CompleteRequest marks a request completed, which is the only signal that
// surfaces it in walk history.
func (a *App) CompleteRequest(walker domain.User, id string) (domain.WalkRequest, error) {
	if walker.Role != domain.RoleWalker {
		return domain.WalkRequest{}, ErrForbidden
	}
	req, ok, err := a.store.GetRequest(id)
	if err != nil {
		return domain.WalkRequest{}, fmt.Errorf("fetch request: %w", err)
	}
	if !ok {
		return domain.WalkRequest{}, ErrNotFound
	}
	req.IsCompleted = true
	req.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveRequest(req); err != nil {
		return domain.WalkRequest{}, fmt.Errorf("save request: %w", err)
	}
	a.events.Publish(context.Background(), events.RequestCompleted, req)
	return req, nil
}

// ListCompleted returns the user's completed walks, optionally narrowed to
// an inclusive date range. Completed records with unparsable dates are
// excluded from range-filtered views; that gets a warning, not an error.
func (a *App) ListCompleted(user domain.User, from, to string) ([]domain.WalkRequest, error) {
	all, err := a.store.ListRequestsByOwner(user.ID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	completed := make([]domain.WalkRequest, 0, len(all))
	for _, req := range all {
		if req.IsCompleted {
			completed = append(completed, req)
		}
	}
	if from == "" && to == "" {
		return completed, nil
	}

	var fromDate, toDate time.Time
	if from != "" {
		fromDate, err = time.Parse(dateLayout, from)
		if err != nil {
			return nil, ErrDateFormat
		}
	}
	if to != "" {
		toDate, err = time.Parse(dateLayout, to)
		if err != nil {
			return nil, ErrDateFormat
		}
	}

	filtered := make([]domain.WalkRequest, 0, len(completed))
	for _, req := range completed {
		walkDate, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			util.LoggerFromContext(context.Background()).Warn("walk with unparsable date excluded from range filter",
				"request_id", req.ID, "date", req.Date)
			continue
		}
		if from != "" && walkDate.Before(fromDate) {
			continue
		}
		if to != "" && walkDate.After(toDate) {
			continue
		}
		filtered = append(filtered, req)
	}
	return filtered, nil
}

// Transcript returns the (request, walker) transcript, synthesizing the
// walker's greeting on first access. A cancelled request's transcript stays
// readable by any authenticated user; a live one only by its owner.
func (a *App) Transcript(user domain.User, requestID, walkerName string) ([]domain.ChatMessage, error) {
	if err := a.authorizeTranscript(user, requestID); err != nil {
		return nil, err
	}
	return a.ensureGreeting(requestID, walkerName)
}

// SendMessage appends a user message to the transcript and schedules a
// simulated walker reply.
func (a *App) SendMessage(user domain.User, requestID, walkerName, text string) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, ErrMessageRequired
	}
	if err := a.authorizeTranscript(user, requestID); err != nil {
		return domain.ChatMessage{}, err
	}
	if _, err := a.ensureGreeting(requestID, walkerName); err != nil {
		return domain.ChatMessage{}, err
	}
	msg := domain.ChatMessage{
		ID:        util.NewID(),
		RequestID: requestID,
		Walker:    walkerName,
		Sender:    domain.SenderUser,
		Text:      text,
		SentAt:    time.Now().UTC(),
	}
	if err := a.store.AppendMessage(msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("append message: %w", err)
	}
	if err := a.responder.Schedule(context.Background(), requestID, walkerName); err != nil {
		util.LoggerFromContext(context.Background()).Warn("schedule walker reply", "request_id", requestID, "err", err)
	}
	return msg, nil
}

func (a *App) authorizeTranscript(user domain.User, requestID string) error {
	req, ok, err := a.store.GetRequest(requestID)
	if err != nil {
		return fmt.Errorf("fetch request: %w", err)
	}
	if ok && req.OwnerID != user.ID {
		return ErrForbidden
	}
	return nil
}

func (a *App) ensureGreeting(requestID, walkerName string) ([]domain.ChatMessage, error) {
	msgs, err := a.store.ListMessages(requestID, walkerName)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if len(msgs) > 0 {
		return msgs, nil
	}
	greeting := domain.ChatMessage{
		ID:        util.NewID(),
		RequestID: requestID,
		Walker:    walkerName,
		Sender:    domain.SenderWalker,
		Text:      chat.Greeting(walkerName),
		SentAt:    time.Now().UTC(),
	}
	if err := a.store.AppendMessage(greeting); err != nil {
		return nil, fmt.Errorf("append greeting: %w", err)
	}
	return []domain.ChatMessage{greeting}, nil
}

// RatingInput carries a rating submission.
type RatingInput struct {
	Kind      domain.RatingKind `json:"kind"`
	RequestID string            `json:"requestId,omitempty"`
	Stars     int               `json:"stars"`
	Comment   string            `json:"comment,omitempty"`
}

// SubmitRating records a walk or app rating. Walk ratings require a
// completed request owned by the rater.
func (a *App) SubmitRating(user domain.User, in RatingInput) (domain.Rating, error) {
	if in.Stars < 1 || in.Stars > 5 {
		return domain.Rating{}, ErrStarsRange
	}
	switch in.Kind {
	case domain.RatingApp:
		in.RequestID = ""
	case domain.RatingWalk:
		req, ok, err := a.store.GetRequest(in.RequestID)
		if err != nil {
			return domain.Rating{}, fmt.Errorf("fetch request: %w", err)
		}
		if !ok {
			return domain.Rating{}, ErrNotFound
		}
		if req.OwnerID != user.ID {
			return domain.Rating{}, ErrForbidden
		}
		if !req.IsCompleted {
			return domain.Rating{}, ErrWalkNotCompleted
		}
	default:
		return domain.Rating{}, fmt.Errorf("invalid rating kind %q", in.Kind)
	}

	rating := domain.Rating{
		ID:        util.NewID(),
		UserID:    user.ID,
		Kind:      in.Kind,
		RequestID: in.RequestID,
		Stars:     in.Stars,
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveRating(rating); err != nil {
		return domain.Rating{}, fmt.Errorf("save rating: %w", err)
	}
	return rating, nil
}

// ListMyRatings returns ratings submitted by the user.
func (a *App) ListMyRatings(user domain.User) ([]domain.Rating, error) {
	return a.store.ListRatingsByUser(user.ID)
}

// ListRequestRatings returns ratings attached to a walk request. While the
// request exists only its owner may read them; like transcripts, ratings of
// a cancelled request stay readable.
func (a *App) ListRequestRatings(user domain.User, requestID string) ([]domain.Rating, error) {
	req, ok, err := a.store.GetRequest(requestID)
	if err != nil {
		return nil, fmt.Errorf("fetch request: %w", err)
	}
	if ok && req.OwnerID != user.ID {
		return nil, ErrForbidden
	}
	return a.store.ListRatingsByRequest(requestID)
}

// SubmitApplication uploads the document image and files a pending walker
// application. Phone, description, and document are all required.
func (a *App) SubmitApplication(user domain.User, phone, description string, document io.Reader, size int64, contentType, filename string) (domain.WalkerApplication, error) {
	if document == nil {
		return domain.WalkerApplication{}, ErrDocumentRequired
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return domain.WalkerApplication{}, ErrPhoneRequired
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.WalkerApplication{}, ErrDescriptionRequired
	}
	if existing, ok, err := a.store.GetApplicationByUser(user.ID); err != nil {
		return domain.WalkerApplication{}, fmt.Errorf("fetch application: %w", err)
	} else if ok && existing.Status == domain.ApplicationPending {
		return domain.WalkerApplication{}, ErrApplicationPending
	}
	if a.objects == nil {
		return domain.WalkerApplication{}, errors.New("document storage not configured")
	}

	key := "applications/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.objects.Put(ctx, key, document, size, contentType); err != nil {
		return domain.WalkerApplication{}, fmt.Errorf("store document: %w", err)
	}

	now := time.Now().UTC()
	application := domain.WalkerApplication{
		ID:          util.NewID(),
		UserID:      user.ID,
		Phone:       phone,
		Description: description,
		DocumentKey: key,
		Status:      domain.ApplicationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.SaveApplication(application); err != nil {
		return domain.WalkerApplication{}, fmt.Errorf("save application: %w", err)
	}
	return application, nil
}

// MyApplication returns the user's most recent application.
func (a *App) MyApplication(user domain.User) (domain.WalkerApplication, bool, error) {
	return a.store.GetApplicationByUser(user.ID)
}

// ListPendingApplications returns applications awaiting review. Walker-role only.
func (a *App) ListPendingApplications(reviewer domain.User) ([]domain.WalkerApplication, error) {
	if reviewer.Role != domain.RoleWalker {
		return nil, ErrForbidden
	}
	return a.store.ListApplicationsByStatus(domain.ApplicationPending)
}

// ReviewApplication resolves a pending application. Approval promotes the
// applicant to walker.
func (a *App) ReviewApplication(reviewer domain.User, id string, approve bool) (domain.WalkerApplication, error) {
	if reviewer.Role != domain.RoleWalker {
		return domain.WalkerApplication{}, ErrForbidden
	}
	application, ok, err := a.store.GetApplication(id)
	if err != nil {
		return domain.WalkerApplication{}, fmt.Errorf("fetch application: %w", err)
	}
	if !ok {
		return domain.WalkerApplication{}, ErrNotFound
	}
	if application.Status != domain.ApplicationPending {
		return domain.WalkerApplication{}, fmt.Errorf("application already %s", application.Status)
	}

	if approve {
		application.Status = domain.ApplicationApproved
	} else {
		application.Status = domain.ApplicationRejected
	}
	application.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveApplication(application); err != nil {
		return domain.WalkerApplication{}, fmt.Errorf("save application: %w", err)
	}

	if approve {
		applicant, found, err := a.store.GetUserByID(application.UserID)
		if err != nil {
			return domain.WalkerApplication{}, fmt.Errorf("fetch applicant: %w", err)
		}
		if found {
			if _, err := a.BecomeWalker(applicant); err != nil {
				return domain.WalkerApplication{}, err
			}
		}
	}
	return application, nil
}

// ApplicationDocumentURL returns a short-lived presigned URL for the
// application document. Accessible to the applicant and walker-role reviewers.
func (a *App) ApplicationDocumentURL(user domain.User, id string) (string, error) {
	application, ok, err := a.store.GetApplication(id)
	if err != nil {
		return "", fmt.Errorf("fetch application: %w", err)
	}
	if !ok {
		return "", ErrNotFound
	}
	if application.UserID != user.ID && user.Role != domain.RoleWalker {
		return "", ErrForbidden
	}
	if a.objects == nil {
		return "", errors.New("document storage not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.objects.PresignGet(ctx, application.DocumentKey, 15*time.Minute)
}

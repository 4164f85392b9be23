package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"petwalk/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&WalkRequestModel{},
		&ChatMessageModel{},
		&RatingModel{},
		&WalkerApplicationModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateUser inserts a new user. The unique indexes on email and username
// enforce atomicity; violations surface as ErrDuplicate.
func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// SaveUser updates an existing user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "email", "password_hash", "role", "updated_at"}),
	}).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasUsername checks if username exists.
func (s *GormStore) HasUsername(username string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by created_at.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// SaveRequest stores or updates a walk request.
func (s *GormStore) SaveRequest(r domain.WalkRequest) error {
	model, err := requestToModel(r)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"date", "start_time", "end_time", "address", "walker", "status", "is_completed", "pet", "updated_at"}),
	}).Create(&model).Error
}

// GetRequest retrieves a walk request.
func (s *GormStore) GetRequest(id string) (domain.WalkRequest, bool, error) {
	var model WalkRequestModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.WalkRequest{}, false, nil
		}
		return domain.WalkRequest{}, false, err
	}
	req, err := requestFromModel(model)
	if err != nil {
		return domain.WalkRequest{}, false, err
	}
	return req, true, nil
}

// ListRequestsByOwner returns the owner's requests ordered by created_at.
func (s *GormStore) ListRequestsByOwner(ownerID string) ([]domain.WalkRequest, error) {
	var models []WalkRequestModel
	if err := s.db.Order("created_at ASC").Where("owner_id = ?", ownerID).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.WalkRequest, 0, len(models))
	for _, m := range models {
		req, err := requestFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, req)
	}
	return res, nil
}

// DeleteRequest removes a walk request. The chat transcript is kept.
func (s *GormStore) DeleteRequest(id string) error {
	return s.db.Delete(&WalkRequestModel{}, "id = ?", id).Error
}

// AppendMessage records a chat message.
func (s *GormStore) AppendMessage(msg domain.ChatMessage) error {
	model := messageToModel(msg)
	return s.db.Create(&model).Error
}

// ListMessages returns the (request, walker) transcript ordered by sent_at.
func (s *GormStore) ListMessages(requestID, walker string) ([]domain.ChatMessage, error) {
	var models []ChatMessageModel
	if err := s.db.Order("sent_at ASC").
		Where("request_id = ? AND walker = ?", requestID, walker).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChatMessage, 0, len(models))
	for _, m := range models {
		res = append(res, messageFromModel(m))
	}
	return res, nil
}

// SaveRating records a rating.
func (s *GormStore) SaveRating(r domain.Rating) error {
	model := ratingToModel(r)
	return s.db.Create(&model).Error
}

// ListRatingsByUser returns ratings submitted by a user.
func (s *GormStore) ListRatingsByUser(userID string) ([]domain.Rating, error) {
	return s.listRatings("user_id = ?", userID)
}

// ListRatingsByRequest returns ratings attached to a walk request.
func (s *GormStore) ListRatingsByRequest(requestID string) ([]domain.Rating, error) {
	return s.listRatings("request_id = ?", requestID)
}

func (s *GormStore) listRatings(cond string, arg any) ([]domain.Rating, error) {
	var models []RatingModel
	if err := s.db.Order("created_at ASC").Where(cond, arg).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Rating, 0, len(models))
	for _, m := range models {
		res = append(res, ratingFromModel(m))
	}
	return res, nil
}

// SaveApplication stores or updates a walker application.
func (s *GormStore) SaveApplication(a domain.WalkerApplication) error {
	model := applicationToModel(a)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"phone", "description", "document_key", "status", "updated_at"}),
	}).Create(&model).Error
}

// GetApplication retrieves a walker application.
func (s *GormStore) GetApplication(id string) (domain.WalkerApplication, bool, error) {
	var model WalkerApplicationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.WalkerApplication{}, false, nil
		}
		return domain.WalkerApplication{}, false, err
	}
	return applicationFromModel(model), true, nil
}

// GetApplicationByUser returns the user's most recent application.
func (s *GormStore) GetApplicationByUser(userID string) (domain.WalkerApplication, bool, error) {
	var model WalkerApplicationModel
	if err := s.db.Order("created_at DESC").First(&model, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.WalkerApplication{}, false, nil
		}
		return domain.WalkerApplication{}, false, err
	}
	return applicationFromModel(model), true, nil
}

// ListApplicationsByStatus returns applications filtered by status.
func (s *GormStore) ListApplicationsByStatus(status domain.ApplicationStatus) ([]domain.WalkerApplication, error) {
	var models []WalkerApplicationModel
	if err := s.db.Order("created_at ASC").Where("status = ?", string(status)).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.WalkerApplication, 0, len(models))
	for _, m := range models {
		res = append(res, applicationFromModel(m))
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func requestToModel(r domain.WalkRequest) (WalkRequestModel, error) {
	model := WalkRequestModel{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Address:     r.Address,
		Walker:      r.Walker,
		Status:      string(r.Status),
		IsCompleted: r.IsCompleted,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Pet != nil {
		raw, err := json.Marshal(r.Pet)
		if err != nil {
			return WalkRequestModel{}, fmt.Errorf("encode pet details: %w", err)
		}
		model.Pet = datatypes.JSON(raw)
	}
	return model, nil
}

func requestFromModel(m WalkRequestModel) (domain.WalkRequest, error) {
	req := domain.WalkRequest{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Date:        m.Date,
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		Address:     m.Address,
		Walker:      m.Walker,
		Status:      domain.RequestStatus(m.Status),
		IsCompleted: m.IsCompleted,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if len(m.Pet) > 0 {
		var pet domain.Pet
		if err := json.Unmarshal(m.Pet, &pet); err != nil {
			return domain.WalkRequest{}, fmt.Errorf("decode pet details: %w", err)
		}
		req.Pet = &pet
	}
	return req, nil
}

func messageToModel(msg domain.ChatMessage) ChatMessageModel {
	return ChatMessageModel{
		ID:        msg.ID,
		RequestID: msg.RequestID,
		Walker:    msg.Walker,
		Sender:    string(msg.Sender),
		Text:      msg.Text,
		SentAt:    msg.SentAt,
	}
}

func messageFromModel(m ChatMessageModel) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        m.ID,
		RequestID: m.RequestID,
		Walker:    m.Walker,
		Sender:    domain.Sender(m.Sender),
		Text:      m.Text,
		SentAt:    m.SentAt,
	}
}

func ratingToModel(r domain.Rating) RatingModel {
	return RatingModel{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      string(r.Kind),
		RequestID: r.RequestID,
		Stars:     r.Stars,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func ratingFromModel(m RatingModel) domain.Rating {
	return domain.Rating{
		ID:        m.ID,
		UserID:    m.UserID,
		Kind:      domain.RatingKind(m.Kind),
		RequestID: m.RequestID,
		Stars:     m.Stars,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
	}
}

func applicationToModel(a domain.WalkerApplication) WalkerApplicationModel {
	return WalkerApplicationModel{
		ID:          a.ID,
		UserID:      a.UserID,
		Phone:       a.Phone,
		Description: a.Description,
		DocumentKey: a.DocumentKey,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func applicationFromModel(m WalkerApplicationModel) domain.WalkerApplication {
	return domain.WalkerApplication{
		ID:          m.ID,
		UserID:      m.UserID,
		Phone:       m.Phone,
		Description: m.Description,
		DocumentKey: m.DocumentKey,
		Status:      domain.ApplicationStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

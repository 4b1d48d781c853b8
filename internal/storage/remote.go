package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"lexhub/internal/httpapi/models"
)

// RemoteNotifications is the durable backend tier for notification rows.
// Available reports whether the backend can be reached for this call.
type RemoteNotifications interface {
	Available() bool
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	UnreadByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, userID, id string) error
	MarkAllAsRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, id string) error
}

type RemoteSettings interface {
	Available() bool
	Get(ctx context.Context, userID string) (*models.NotificationSettings, error)
	Save(ctx context.Context, s *models.NotificationSettings) error
}

type RemoteUpdates interface {
	Available() bool
	Insert(ctx context.Context, updates []models.TribunalUpdate) error
	Recent(ctx context.Context, limit int) ([]models.TribunalUpdate, error)
}

type RemoteTracked interface {
	Available() bool
	List(ctx context.Context, userID string) ([]string, error)
	ListAll(ctx context.Context) ([]models.TrackedCaseNumber, error)
	Insert(ctx context.Context, userID string, numbers []string) error
}

type RemoteUsers interface {
	Available() bool
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type remoteNotifications struct {
	db *gorm.DB
}

func NewRemoteNotifications(db *gorm.DB) RemoteNotifications {
	return &remoteNotifications{db: db}
}

func (r *remoteNotifications) Available() bool {
	return r != nil && r.db != nil
}

func (r *remoteNotifications) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *remoteNotifications) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (r *remoteNotifications) UnreadByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND read = false", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (r *remoteNotifications) MarkAsRead(ctx context.Context, userID, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND id = ?", userID, id).
		Update("read", true).Error
}

func (r *remoteNotifications) MarkAllAsRead(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Update("read", true).Error
}

func (r *remoteNotifications) Delete(ctx context.Context, userID, id string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&models.Notification{}).Error
}

type remoteSettings struct {
	db *gorm.DB
}

func NewRemoteSettings(db *gorm.DB) RemoteSettings {
	return &remoteSettings{db: db}
}

func (r *remoteSettings) Available() bool {
	return r != nil && r.db != nil
}

// Get returns (nil, nil) when the user has no settings row yet; the
// service layer substitutes defaults.
func (r *remoteSettings) Get(ctx context.Context, userID string) (*models.NotificationSettings, error) {
	var settings models.NotificationSettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *remoteSettings) Save(ctx context.Context, s *models.NotificationSettings) error {
	return r.db.WithContext(ctx).Save(s).Error
}

type remoteUpdates struct {
	db *gorm.DB
}

func NewRemoteUpdates(db *gorm.DB) RemoteUpdates {
	return &remoteUpdates{db: db}
}

func (r *remoteUpdates) Available() bool {
	return r != nil && r.db != nil
}

func (r *remoteUpdates) Insert(ctx context.Context, updates []models.TribunalUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&updates).Error
}

func (r *remoteUpdates) Recent(ctx context.Context, limit int) ([]models.TribunalUpdate, error) {
	var updates []models.TribunalUpdate
	err := r.db.WithContext(ctx).
		Order("date DESC").
		Limit(limit).
		Find(&updates).Error
	return updates, err
}

type remoteTracked struct {
	db *gorm.DB
}

func NewRemoteTracked(db *gorm.DB) RemoteTracked {
	return &remoteTracked{db: db}
}

func (r *remoteTracked) Available() bool {
	return r != nil && r.db != nil
}

func (r *remoteTracked) List(ctx context.Context, userID string) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.TrackedCaseNumber{}).
		Where("user_id = ?", userID).
		Order("id").
		Pluck("case_number", &numbers).Error
	return numbers, err
}

// ListAll returns every tracked row across users, in insertion order.
// The registry loads all of them at startup so polling covers every
// user's numbers, not just one scope.
func (r *remoteTracked) ListAll(ctx context.Context) ([]models.TrackedCaseNumber, error) {
	var rows []models.TrackedCaseNumber
	err := r.db.WithContext(ctx).Order("id").Find(&rows).Error
	return rows, err
}

// Insert creates rows for the given numbers. The caller diffs against
// List beforehand; there is no unique constraint on case_number.
func (r *remoteTracked) Insert(ctx context.Context, userID string, numbers []string) error {
	if len(numbers) == 0 {
		return nil
	}
	rows := make([]models.TrackedCaseNumber, 0, len(numbers))
	for _, number := range numbers {
		rows = append(rows, models.TrackedCaseNumber{UserID: userID, CaseNumber: number})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

type remoteUsers struct {
	db *gorm.DB
}

func NewRemoteUsers(db *gorm.DB) RemoteUsers {
	return &remoteUsers{db: db}
}

func (r *remoteUsers) Available() bool {
	return r != nil && r.db != nil
}

func (r *remoteUsers) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *remoteUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *remoteUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

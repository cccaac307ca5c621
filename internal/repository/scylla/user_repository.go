package scylla

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"admin-service/internal/bucketing"
	"admin-service/internal/models"
	"admin-service/internal/util"
)

// UserRepository reads platform user accounts. This service never writes
// user rows; promotion eligibility is decided from what the platform has
// already recorded.
type UserRepository interface {
	GetByID(userID string) (*models.PlatformUser, error)
	GetByEmail(email string) (*models.PlatformUser, error)
}

type userRepository struct {
	client  *ScyllaClient
	buckets *bucketing.Manager
}

func NewUserRepository(client *ScyllaClient, buckets *bucketing.Manager) UserRepository {
	return &userRepository{
		client:  client,
		buckets: buckets,
	}
}

func (r *userRepository) GetByID(userID string) (*models.PlatformUser, error) {
	bucket := r.buckets.UserBucket(userID)
	return r.scanUser(bucket, userID)
}

func (r *userRepository) GetByEmail(email string) (*models.PlatformUser, error) {
	var bucket int
	var userID string

	query := r.client.Prepared.GetUserIDByEmail.Bind(email)
	if err := r.client.ScanWithRetry(query, &bucket, &userID); err != nil {
		if err == gocql.ErrNotFound {
			return nil, models.ErrUserNotFound
		}
		util.Error("Failed to resolve user by email",
			zap.String("email", email),
			zap.Error(err))
		return nil, fmt.Errorf("failed to resolve user by email: %w", err)
	}

	return r.scanUser(bucket, userID)
}

func (r *userRepository) scanUser(bucket int, userID string) (*models.PlatformUser, error) {
	user := &models.PlatformUser{}
	var createdAt time.Time

	query := r.client.Prepared.GetUserByID.Bind(bucket, userID)
	err := r.client.ScanWithRetry(query,
		&user.UserBucket, &user.UserID, &user.Email, &user.FullName,
		&user.KYCStatus, &user.IsBanned, &createdAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, models.ErrUserNotFound
		}
		util.Error("Failed to get user by ID",
			zap.String("user_id", userID),
			zap.Int("user_bucket", bucket),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	user.CreatedAt = createdAt
	return user, nil
}

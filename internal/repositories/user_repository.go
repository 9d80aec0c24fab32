package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"serveease-chat/internal/models"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrServiceRequestNotFound = errors.New("service request not found")
)

// UserRepository reads user rows owned by the identity service.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
}

// ServiceRequestRepository reads service requests owned by the marketplace
// service; it is the authority on who a conversation's parties are.
type ServiceRequestRepository interface {
	GetServiceRequest(ctx context.Context, serviceRequestID int) (models.ServiceRequest, error)
}

// UserRepo is a read-only sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, name, email, role, is_active FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// ServiceRequestRepo is a read-only sqlx implementation of ServiceRequestRepository.
type ServiceRequestRepo struct {
	db *sqlx.DB
}

// NewServiceRequestRepo constructs a ServiceRequestRepo.
func NewServiceRequestRepo(db *sqlx.DB) *ServiceRequestRepo {
	return &ServiceRequestRepo{db: db}
}

// GetServiceRequest fetches a service request by id.
func (r *ServiceRequestRepo) GetServiceRequest(ctx context.Context, serviceRequestID int) (models.ServiceRequest, error) {
	var sr models.ServiceRequest
	err := r.db.GetContext(ctx, &sr,
		`SELECT id, seeker_id, provider_id, status FROM service_requests WHERE id=$1`, serviceRequestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ServiceRequest{}, ErrServiceRequestNotFound
	}
	return sr, err
}

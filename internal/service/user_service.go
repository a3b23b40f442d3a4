package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tailms-api/internal/dto"
	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/internal/repository"
	appErrors "github.com/noah-isme/tailms-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// Actor identifies the caller of a user-management operation.
type Actor struct {
	ID   string
	Role models.UserRole
	Meta models.RequestMeta
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// UserService handles account administration.
type UserService struct {
	repo      userRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create adds a new account. Status defaults to ACTIVE.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, actor Actor) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid create user payload")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = models.UserStatusActive
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
		Status:       status,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.record(ctx, actor, models.AuditActionUserCreate, user.ID, nil, userSnapshot(user))
	return user, nil
}

// Update applies a partial update. Non-admin actors may only update their own
// email and password.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest, actor Actor) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid update payload")
	}
	if !actor.IsAdmin() {
		if actor.ID != id {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only update your own profile")
		}
		if req.Role != nil || req.Status != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can change role or status")
		}
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := userSnapshot(user)

	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	if req.Password != nil {
		s.revokeSessions(ctx, user.ID)
	}

	s.record(ctx, actor, models.AuditActionUserUpdate, user.ID, before, userSnapshot(user))
	return user, nil
}

// UpdateStatus changes the account status. Leaving ACTIVE revokes open sessions.
func (s *UserService) UpdateStatus(ctx context.Context, id string, req dto.UpdateUserStatusRequest, actor Actor) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid status payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := userSnapshot(user)
	user.Status = req.Status

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user status")
	}
	if !user.IsActive() {
		s.revokeSessions(ctx, user.ID)
	}

	s.record(ctx, actor, models.AuditActionUserStatus, user.ID, before, userSnapshot(user))
	return user, nil
}

// Delete removes the account together with its enrollments.
func (s *UserService) Delete(ctx context.Context, id string, actor Actor) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.record(ctx, actor, models.AuditActionUserDelete, id, userSnapshot(user), nil)
	return nil
}

func uniqueConflict(err error) *appErrors.Error {
	if !repository.IsUniqueViolation(err) {
		return nil
	}
	if repository.ConstraintName(err) == repository.UsersEmailConstraint {
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}
	return appErrors.Clone(appErrors.ErrConflict, "user conflicts with an existing record")
}

func (s *UserService) revokeSessions(ctx context.Context, userID string) {
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *UserService) record(ctx context.Context, actor Actor, action, userID string, before, after map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "users",
		ResourceID: &userID,
		IPAddress:  actor.Meta.IP,
		UserAgent:  actor.Meta.UserAgent,
	}
	if actor.ID != "" {
		entry.UserID = &actor.ID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}

func userSnapshot(user *models.User) map[string]interface{} {
	return map[string]interface{}{"email": user.Email, "role": user.Role, "status": user.Status}
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/auth"
	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/repository"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// UserService manages the account directory. All operations here are
// admin-gated at the router level.
type UserService struct {
	store      repository.Store
	bcryptCost int
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store      repository.Store
	BcryptCost int
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{store: deps.Store, bcryptCost: deps.BcryptCost}
}

// UserCreateInput carries fields for account creation.
type UserCreateInput struct {
	Username    string
	DisplayName string
	Password    string
	Role        domain.Role
}

// UserUpdateInput carries mutable account fields. Nil means unchanged.
type UserUpdateInput struct {
	DisplayName *string
	Role        *domain.Role
}

// UserListFilter carries directory search parameters.
type UserListFilter struct {
	Username    *string
	DisplayName *string
	Role        *domain.Role
	Page        int
	PageSize    int
}

// UserPage is a page of accounts plus the total matching count.
type UserPage struct {
	Items    []domain.User
	Total    int
	Page     int
	PageSize int
}

// CreateUser registers a new account. Usernames are unique.
func (s *UserService) CreateUser(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username required", nil)
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewValidationError("password required", nil)
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}

	if _, err := s.store.Users().GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}

	user := &domain.User{
		ID:           domain.NewID(),
		Username:     username,
		DisplayName:  displayName,
		Role:         input.Role,
		PasswordHash: hash,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// GetUser fetches one account by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateUser applies directory changes to an account.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		displayName := strings.TrimSpace(*input.DisplayName)
		if displayName == "" {
			return nil, apperrors.NewValidationError("display name required", nil)
		}
		user.DisplayName = displayName
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *input.Role})
		}
		user.Role = *input.Role
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// DeleteUser removes an account. Bugs still assigned to the account revert to
// open in the same transaction, each with its own audit entry, so no bug is
// left in an assigned state without an assignee. Authored bugs and comments
// keep their rows; the schema nulls the user reference.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.User, id string) error {
	if actor.ID == id {
		return apperrors.NewValidationError("cannot delete your own account", nil)
	}
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}

	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		assigned, err := tx.Bugs().List(ctx, repository.BugFilter{
			AssigneeID: &id,
			Limit:      10000,
		})
		if err != nil {
			return apperrors.MapError(err)
		}
		for i := range assigned {
			bug := assigned[i]
			oldStatus := bug.Status
			bug.AssigneeID = nil
			bug.Status = domain.BugStatusOpen
			if err := tx.Bugs().Update(ctx, &bug); err != nil {
				return apperrors.MapError(err)
			}
			if oldStatus != domain.BugStatusOpen {
				if err := appendHistory(ctx, tx, bug.ID, actor.ID, domain.ActionStatusChanged,
					strPtr(string(oldStatus)), strPtr(string(domain.BugStatusOpen))); err != nil {
					return err
				}
			}
		}
		if err := tx.Users().Delete(ctx, id); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
}

// ListUsers searches the directory with pagination.
func (s *UserService) ListUsers(ctx context.Context, filter UserListFilter) (*UserPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	repoFilter := repository.UserFilter{
		Username:    filter.Username,
		DisplayName: filter.DisplayName,
		Role:        filter.Role,
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
	}

	users, err := s.store.Users().List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total, err := s.store.Users().Count(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &UserPage{Items: users, Total: total, Page: page, PageSize: pageSize}, nil
}

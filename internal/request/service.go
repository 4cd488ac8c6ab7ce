package request

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/leajer/leajer/internal/rbac"
	"github.com/leajer/leajer/internal/shared"
)

// Service is the request lifecycle engine. Every operation checks the
// acting session's permissions before anything else; permission and
// status violations are detected locally and never reach the repository.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	validate *validator.Validate

	// saving serializes mutations per session, mirroring the dashboard's
	// rule that at most one create/update/delete is in flight at a time.
	// Reads are never serialized.
	mu     sync.Mutex
	saving map[string]struct{}
}

// NewService constructs a Service backed by the given repository.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		logger:   logger,
		validate: validator.New(),
		saving:   make(map[string]struct{}),
	}
}

// List returns all request records visible to the session.
func (s *Service) List(ctx context.Context, sess *shared.Session) ([]RetailerRequest, error) {
	if err := requirePermission(sess, rbac.PermViewRequests); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, bearerOf(sess))
}

// Get returns a single record by id.
func (s *Service) Get(ctx context.Context, sess *shared.Session, id string) (RetailerRequest, error) {
	if err := requirePermission(sess, rbac.PermViewRequests); err != nil {
		return RetailerRequest{}, err
	}
	return s.repo.Get(ctx, bearerOf(sess), id)
}

// Create validates the input, snapshots the acting user as attendedBy and
// delegates persistence to the repository. On repository failure nothing
// is applied locally; the caller's list stays exactly as it was.
func (s *Service) Create(ctx context.Context, sess *shared.Session, input CreateInput) (RetailerRequest, error) {
	if err := requirePermission(sess, rbac.PermCreateRequest); err != nil {
		return RetailerRequest{}, err
	}
	if err := s.validate.Struct(input); err != nil {
		return RetailerRequest{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	release, err := s.beginSave(sess)
	if err != nil {
		return RetailerRequest{}, err
	}
	defer release()

	body := CreateBody{
		RetailerName: input.RetailerName,
		ProductName:  input.ProductName,
		Description:  input.Description,
		UniqueID:     input.UniqueID,
		AttendedBy:   sess.Identity().Name,
	}
	created, err := s.repo.Create(ctx, bearerOf(sess), body)
	if err != nil {
		return RetailerRequest{}, err
	}
	if s.logger != nil {
		s.logger.Info("request created",
			slog.String("id", created.ID),
			slog.String("retailer", created.RetailerName))
	}
	return created, nil
}

// UpdateStatus moves a record to newStatus. Transitions are unrestricted
// among the three lifecycle values; values outside the enumeration are
// rejected before any network call. Setting the current status again is
// still a successful call and refreshes updatedAt.
func (s *Service) UpdateStatus(ctx context.Context, sess *shared.Session, id string, newStatus Status) (RetailerRequest, error) {
	if err := requirePermission(sess, rbac.PermEditRequest); err != nil {
		return RetailerRequest{}, err
	}
	if !ValidStatus(newStatus) {
		return RetailerRequest{}, fmt.Errorf("%w: %q", shared.ErrInvalidStatus, newStatus)
	}

	release, err := s.beginSave(sess)
	if err != nil {
		return RetailerRequest{}, err
	}
	defer release()

	updated, err := s.repo.UpdateStatus(ctx, bearerOf(sess), id, newStatus)
	if err != nil {
		return RetailerRequest{}, err
	}
	if s.logger != nil {
		s.logger.Info("request status updated",
			slog.String("id", id),
			slog.String("status", string(newStatus)))
	}
	return updated, nil
}

// Delete removes a record. Owner only; the caller must keep the item in
// any cached list until this returns nil.
func (s *Service) Delete(ctx context.Context, sess *shared.Session, id string) error {
	if err := requirePermission(sess, rbac.PermDeleteRequest); err != nil {
		return err
	}

	release, err := s.beginSave(sess)
	if err != nil {
		return err
	}
	defer release()

	if err := s.repo.Delete(ctx, bearerOf(sess), id); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("request deleted", slog.String("id", id))
	}
	return nil
}

// beginSave claims the session's single mutation slot. The returned
// release must be called once the repository round-trip finishes.
func (s *Service) beginSave(sess *shared.Session) (func(), error) {
	key := sess.ID
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.saving[key]; busy {
		return nil, shared.ErrMutationInFlight
	}
	s.saving[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.saving, key)
		s.mu.Unlock()
	}, nil
}

func requirePermission(sess *shared.Session, perm rbac.Permission) error {
	if sess == nil || sess.Identity() == nil {
		return fmt.Errorf("%w: no active session", shared.ErrPermissionDenied)
	}
	role, ok := rbac.ParseRole(sess.Identity().Role)
	if !ok || !rbac.HasPermission(role, perm) {
		return fmt.Errorf("%w: %s requires %s", shared.ErrPermissionDenied, sess.Identity().Role, perm)
	}
	return nil
}

func bearerOf(sess *shared.Session) string {
	if sess == nil {
		return ""
	}
	return sess.Bearer()
}

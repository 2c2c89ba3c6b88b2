package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campusconnect/event-service/internal/authz"
	"github.com/campusconnect/event-service/internal/events"
	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/repositories"
	"github.com/campusconnect/event-service/internal/validator"
)

// revokedTokenFallbackTTL is used when a signed-out token's own expiry cannot be read.
const revokedTokenFallbackTTL = 24 * time.Hour

// RoleStore caches resolved roles per user
type RoleStore interface {
	Get(ctx context.Context, userID string) (models.UserRole, bool)
	Set(ctx context.Context, userID string, role models.UserRole)
	Delete(ctx context.Context, userID string) error
}

// TokenRevoker remembers signed-out bearer tokens until they expire
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) bool
}

type identityService struct {
	repo          repositories.Repository
	roles         RoleStore
	revocations   TokenRevoker
	policy        authz.DomainPolicy
	adminPassword string
	publisher     events.EventPublisher
	logger        *slog.Logger
	validator     *validator.Validator
}

func NewIdentityService(
	repo repositories.Repository,
	roles RoleStore,
	revocations TokenRevoker,
	policy authz.DomainPolicy,
	adminPassword string,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
) IdentityService {
	return &identityService{
		repo:          repo,
		roles:         roles,
		revocations:   revocations,
		policy:        policy,
		adminPassword: adminPassword,
		publisher:     publisher,
		logger:        logger,
		validator:     validator,
	}
}

// ===== ACCOUNTS =====

func (s *identityService) SignUp(ctx context.Context, req *SignUpRequest) (*SignUpResponse, error) {
	s.logger.Info("Signing up user", "email", req.Email, "requested_role", req.Role)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	role, ok := s.policy.SignUpRole(email, req.Role)
	if !ok {
		s.logger.Info("Rejected elevated sign-up from non-institutional domain", "email", email)
		return nil, &AdminDomainError{Email: email}
	}

	profile, err := s.provision(ctx, repositories.NewAccount{
		Email:    email,
		Password: req.Password,
		FullName: strings.TrimSpace(req.FullName),
		Role:     role,
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.logger, s.publisher, events.UserSignedUp, events.IdentityData{
		UserID: profile.ID,
		Email:  profile.Email,
		Role:   string(profile.Role),
	})

	s.logger.Info("User signed up", "user_id", profile.ID, "role", profile.Role)
	return &SignUpResponse{Profile: profile}, nil
}

func (s *identityService) CreateAdminAccount(ctx context.Context, caller models.Principal, req *CreateAdminRequest) (*CreateAdminResponse, error) {
	s.logger.Info("Creating admin account", "caller_id", caller.ID, "email", req.Email)

	if !authz.Can(caller, authz.ActionCreateAdminAccount, authz.Resource{}) {
		return nil, NewAuthorizationError(caller.ID, "", "account", "create admin", "executive role required")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if !s.policy.IsReserved(email) {
		return nil, &DomainRejectedError{Email: email}
	}

	profile, err := s.provision(ctx, repositories.NewAccount{
		Email:              email,
		Password:           s.adminPassword,
		FullName:           strings.TrimSpace(req.FullName),
		Role:               models.RoleAdmin,
		MustRotatePassword: true,
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.logger, s.publisher, events.AdminAccountCreated, events.IdentityData{
		UserID:             profile.ID,
		Email:              profile.Email,
		Role:               string(profile.Role),
		CreatedBy:          caller.ID,
		MustRotatePassword: true,
	})

	s.logger.Info("Admin account created", "user_id", profile.ID, "created_by", caller.ID)
	return &CreateAdminResponse{Profile: profile, MustRotatePassword: true}, nil
}

// provision creates the identity-provider account and then the profile row. A failed
// profile insert removes the account again so no half-created user is left behind.
func (s *identityService) provision(ctx context.Context, account repositories.NewAccount) (*models.Profile, error) {
	_, err := s.repo.Profile().GetByEmail(ctx, account.Email)
	switch {
	case err == nil:
		return nil, ErrAccountExists
	case !repositories.IsNotFoundError(err):
		return nil, storeError("check existing profile", err)
	}

	user, err := s.repo.Identity().CreateAccount(ctx, account)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountExists) {
			return nil, ErrAccountExists
		}
		return nil, storeError("create identity account", err)
	}

	profile := &models.Profile{
		ID:       user.ID,
		Email:    account.Email,
		FullName: account.FullName,
		Role:     account.Role,
	}
	if err := s.repo.Profile().Create(ctx, profile); err != nil {
		if delErr := s.repo.Identity().DeleteAccount(context.WithoutCancel(ctx), user.ID); delErr != nil {
			s.logger.Error("Failed to roll back identity account", "user_id", user.ID, "error", delErr)
		}
		if repositories.IsDuplicateError(err) {
			return nil, ErrAccountExists
		}
		return nil, storeError("create profile", err)
	}

	s.roles.Set(ctx, profile.ID, profile.Role)
	return profile, nil
}

// ===== SESSIONS =====

func (s *identityService) SignIn(ctx context.Context, session *Session, req *SignInRequest) (*SignInResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := session.begin(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignInFailed, err)
	}

	token, err := s.repo.Identity().ExchangeCode(ctx, req.Code, req.State)
	if err != nil {
		session.reset()
		s.logger.Warn("Sign-in code exchange failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSignInFailed, err)
	}

	if err := s.ensureProfile(ctx, token.User); err != nil {
		session.reset()
		return nil, err
	}

	// the role is re-resolved on every sign-in
	if err := s.roles.Delete(ctx, token.User.ID); err != nil {
		s.logger.Warn("Failed to drop cached role", "user_id", token.User.ID, "error", err)
	}
	role := s.ResolveRole(ctx, token.User.ID)

	principal := models.NewPrincipal(token.User.ID, token.User.Email, role)
	session.authenticate(principal, token.ExpiresAt)

	s.logger.Info("User signed in", "user_id", principal.ID, "role", principal.Role)
	return &SignInResponse{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		User:        principal,
		State:       session.State(),
	}, nil
}

// ensureProfile creates the profile of an identity-provider user that never went through SignUp.
func (s *identityService) ensureProfile(ctx context.Context, user repositories.IdentityUser) error {
	_, err := s.repo.Profile().GetByID(ctx, user.ID)
	if err == nil {
		return nil
	}
	if !repositories.IsNotFoundError(err) {
		// role resolution falls back to student; sign-in itself can proceed
		s.logger.Warn("Profile lookup failed during sign-in", "user_id", user.ID, "error", err)
		return nil
	}

	role, _ := s.policy.SignUpRole(user.Email, models.RoleStudent)
	profile := &models.Profile{
		ID:       user.ID,
		Email:    normalizeEmail(user.Email),
		FullName: strings.TrimSpace(user.FullName),
		Role:     role,
	}
	if err := s.repo.Profile().Create(ctx, profile); err != nil && !repositories.IsDuplicateError(err) {
		return storeError("create profile on sign-in", err)
	}
	s.logger.Info("Created profile on first sign-in", "user_id", user.ID, "role", role)
	return nil
}

func (s *identityService) SignOut(ctx context.Context, session *Session, token string) error {
	principal := session.Principal()

	if principal.IsAuthenticated() {
		if err := s.roles.Delete(ctx, principal.ID); err != nil {
			return storeError("clear cached role", err)
		}
	}

	if token != "" {
		expiresAt := session.ExpiresAt()
		if expiresAt.IsZero() {
			expiresAt = utcNow().Add(revokedTokenFallbackTTL)
			if parsed, err := s.repo.Identity().ParseToken(ctx, token); err == nil {
				expiresAt = parsed.ExpiresAt
			}
		}
		if err := s.revocations.Revoke(ctx, token, expiresAt); err != nil {
			return storeError("revoke session", err)
		}
	}

	session.reset()
	s.logger.Info("User signed out", "user_id", principal.ID)
	return nil
}

func (s *identityService) GetSession(ctx context.Context, token string) (models.Principal, error) {
	if token == "" || s.revocations.IsRevoked(ctx, token) {
		return models.Anonymous, ErrInvalidSession
	}

	parsed, err := s.repo.Identity().ParseToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidToken) {
			return models.Anonymous, ErrInvalidSession
		}
		return models.Anonymous, storeError("parse session token", err)
	}

	role := s.ResolveRole(ctx, parsed.User.ID)
	return models.NewPrincipal(parsed.User.ID, parsed.User.Email, role), nil
}

func (s *identityService) ResolveRole(ctx context.Context, userID string) models.UserRole {
	if userID == "" {
		return models.RoleStudent
	}
	if role, ok := s.roles.Get(ctx, userID); ok {
		return role
	}

	profile, err := retryRead(ctx, func(ctx context.Context) (*models.Profile, error) {
		return s.repo.Profile().GetByID(ctx, userID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return models.RoleStudent
		}
		s.logger.Warn("Role lookup failed, defaulting to student", "user_id", userID, "error", err)
		return models.RoleStudent
	}

	role := models.ParseRole(string(profile.Role))
	s.roles.Set(ctx, userID, role)
	return role
}

func (s *identityService) WatchSessions(ctx context.Context, session *Session, changes <-chan SessionChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			s.applySessionChange(ctx, session, change)
		}
	}
}

func (s *identityService) applySessionChange(ctx context.Context, session *Session, change SessionChange) {
	if err := s.roles.Delete(ctx, change.UserID); err != nil {
		s.logger.Warn("Failed to drop cached role", "user_id", change.UserID, "error", err)
	}

	switch change.Kind {
	case SessionSignedOut:
		if session.Principal().ID == change.UserID {
			session.reset()
		}
	case SessionSignedIn:
		role := s.ResolveRole(ctx, change.UserID)
		session.authenticate(models.NewPrincipal(change.UserID, change.Email, role), change.ExpiresAt)
	case SessionRefreshed:
		session.setRole(change.UserID, s.ResolveRole(ctx, change.UserID))
	default:
		s.logger.Warn("Ignoring unknown session change", "kind", change.Kind, "user_id", change.UserID)
	}
}

// ===== PROFILE =====

func (s *identityService) GetProfile(ctx context.Context, caller models.Principal) (*models.Profile, error) {
	if !caller.IsAuthenticated() {
		return nil, NewAuthorizationError("", "", "profile", "view", "sign-in required")
	}

	profile, err := s.repo.Profile().GetByID(ctx, caller.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfileNotFound
		}
		return nil, storeError("get profile", err)
	}
	return profile, nil
}

func (s *identityService) UpdateProfile(ctx context.Context, caller models.Principal, req *UpdateProfileRequest) (*models.Profile, error) {
	if !authz.Can(caller, authz.ActionUpdateOwnProfile, authz.Resource{OwnerID: caller.ID}) {
		return nil, NewAuthorizationError(caller.ID, caller.ID, "profile", "update", "sign-in required")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.RollNumber != nil {
		updates["roll_number"] = strings.TrimSpace(*req.RollNumber)
	}
	if req.Department != nil {
		updates["department"] = strings.TrimSpace(*req.Department)
	}
	if req.YearOfStudy != nil {
		updates["year_of_study"] = *req.YearOfStudy
	}

	if len(updates) > 0 {
		if err := s.repo.Profile().Update(ctx, caller.ID, updates); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrProfileNotFound
			}
			return nil, storeError("update profile", err)
		}
		s.logger.Info("Profile updated", "user_id", caller.ID, "fields", len(updates))
	}

	return s.GetProfile(ctx, caller)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/surdiana/modelbank/config"
	"github.com/surdiana/modelbank/internal/dto"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/model"
	"github.com/surdiana/modelbank/pkg/logger"
	"go.uber.org/zap"
)

// AuthService implements the credential and session lifecycle: login
// with lockout, token refresh with rotation and theft detection,
// logout, password change and first-run setup.
type AuthService struct {
	users     UserStore
	tokens    RefreshTokenStore
	passwords *PasswordService
	jwt       *TokenService
	audit     *AuditService
	cfg       config.AuthConfig
	log       *zap.Logger
	now       func() time.Time

	// dummyHash absorbs a verification round when the username is
	// unknown, so lookups and password failures take similar time.
	dummyHash string
}

// NewAuthService creates an auth service
func NewAuthService(
	users UserStore,
	tokens RefreshTokenStore,
	passwords *PasswordService,
	jwt *TokenService,
	audit *AuditService,
	cfg config.AuthConfig,
	log *zap.Logger,
) *AuthService {
	dummy, err := passwords.Hash(uuid.NewString())
	if err != nil {
		dummy = ""
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		jwt:       jwt,
		audit:     audit,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// issuePair mints an access/refresh pair and records the refresh token
// in the ledger under the given family.
func (s *AuthService) issuePair(ctx context.Context, user *model.User, familyID string) (*dto.TokenPairResponse, string, error) {
	row := s.newRefreshRow(user, familyID)
	if err := s.tokens.Create(ctx, row); err != nil {
		return nil, "", err
	}
	return s.signPair(user, row)
}

// newRefreshRow builds an unsaved ledger row for a refresh token.
func (s *AuthService) newRefreshRow(user *model.User, familyID string) *model.RefreshToken {
	now := s.now().UTC()
	return &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		FamilyID:  familyID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.jwt.RefreshTTL()),
	}
}

// signPair mints the JWTs for an already-persisted ledger row.
func (s *AuthService) signPair(user *model.User, row *model.RefreshToken) (*dto.TokenPairResponse, string, error) {
	access, sessionID, err := s.jwt.IssueAccess(user)
	if err != nil {
		return nil, "", err
	}

	refresh, err := s.jwt.IssueRefresh(user, row.ID, row.FamilyID)
	if err != nil {
		return nil, "", err
	}

	return &dto.TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.jwt.AccessTTL().Seconds()),
	}, sessionID, nil
}

// Login authenticates credentials and returns a fresh token pair. All
// credential failures collapse to INVALID_CREDENTIALS; a locked
// account is reported as such without revealing password correctness.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest, clientAddr string) (*dto.TokenPairResponse, error) {
	now := s.now().UTC()

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			_, _ = s.passwords.Verify(req.Password, s.dummyHash)
			s.audit.TryRecord(ctx, AuditEvent{
				ActorName:  req.Username,
				Action:     model.ActionLoginFailed,
				Detail:     map[string]interface{}{"reason": "unknown_user"},
				ClientAddr: clientAddr,
			})
			return nil, domainerrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		s.audit.TryRecord(ctx, AuditEvent{
			ActorID:    user.ID,
			ActorName:  user.Username,
			Action:     model.ActionLoginFailed,
			Detail:     map[string]interface{}{"reason": "inactive"},
			ClientAddr: clientAddr,
		})
		return nil, domainerrors.ErrInvalidCredentials
	}

	// Locked accounts fail without touching the failure counter.
	if user.IsLocked(now) {
		s.audit.TryRecord(ctx, AuditEvent{
			ActorID:    user.ID,
			ActorName:  user.Username,
			Action:     model.ActionLoginFailed,
			Detail:     map[string]interface{}{"reason": "locked"},
			ClientAddr: clientAddr,
		})
		return nil, domainerrors.ErrAccountLocked
	}

	ok, verr := s.passwords.Verify(req.Password, user.PasswordHash)
	if verr != nil {
		// Unreadable stored hash denies login rather than passing it.
		s.log.Error("stored password hash unreadable",
			zap.String("user_id", user.ID),
			zap.Error(verr))
	}
	if !ok {
		failed := user.FailedLoginCount + 1
		var lockedUntil *time.Time
		if failed >= s.cfg.MaxFailedLogins {
			until := now.Add(s.cfg.LockoutDuration)
			lockedUntil = &until
		}
		if err := s.users.RecordLoginFailure(ctx, user.ID, failed, lockedUntil); err != nil {
			return nil, err
		}

		logger.LogAuth(s.log, user.ID, "login", false,
			zap.Int("failed_count", failed),
			zap.Bool("locked", lockedUntil != nil))

		s.audit.TryRecord(ctx, AuditEvent{
			ActorID:    user.ID,
			ActorName:  user.Username,
			Action:     model.ActionLoginFailed,
			Detail:     map[string]interface{}{"reason": "bad_password", "failed_count": failed},
			ClientAddr: clientAddr,
		})
		if lockedUntil != nil {
			s.audit.TryRecord(ctx, AuditEvent{
				ActorID:    user.ID,
				ActorName:  user.Username,
				Action:     model.ActionLockout,
				Detail:     map[string]interface{}{"locked_until": lockedUntil.Format(time.RFC3339)},
				ClientAddr: clientAddr,
			})
		}
		return nil, domainerrors.ErrInvalidCredentials
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return nil, err
	}

	pair, sessionID, err := s.issuePair(ctx, user, uuid.NewString())
	if err != nil {
		return nil, err
	}

	logger.LogAuth(s.log, user.ID, "login", true)
	s.audit.TryRecord(ctx, AuditEvent{
		ActorID:    user.ID,
		ActorName:  user.Username,
		Action:     model.ActionLogin,
		ClientAddr: clientAddr,
		SessionID:  sessionID,
	})

	return pair, nil
}

// Refresh rotates a refresh token. The presented token is marked used
// exactly once under a row lock; presenting an already-used token is
// treated as theft and revokes the entire family.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, clientAddr string) (*dto.TokenPairResponse, error) {
	claims, err := s.jwt.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domainerrors.ErrInvalidToken
	}

	now := s.now().UTC()
	successor := s.newRefreshRow(user, claims.FamilyID)
	var reuse bool
	err = s.tokens.Tx(ctx, func(tx RefreshTokenTx) error {
		row, err := tx.GetForUpdate(claims.ID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return domainerrors.ErrInvalidToken
			}
			return err
		}

		// Revoked and expired tokens are plain invalid; reuse detection
		// only applies to tokens that were still live when consumed.
		if row.Revoked || now.After(row.ExpiresAt) {
			return domainerrors.ErrInvalidToken
		}
		if row.UsedAt != nil {
			reuse = true
			return tx.RevokeFamily(row.FamilyID)
		}
		if err := tx.MarkUsed(row.ID, now); err != nil {
			return err
		}
		// The successor lands in the same transaction, so the presented
		// token is never consumed without its replacement existing.
		return tx.Insert(successor)
	})
	if err != nil {
		return nil, err
	}

	if reuse {
		s.log.Warn("refresh token reuse detected",
			zap.String("user_id", user.ID),
			zap.String("family_id", claims.FamilyID))
		s.audit.TryRecord(ctx, AuditEvent{
			ActorID:    user.ID,
			ActorName:  user.Username,
			Action:     model.ActionTokenReuse,
			Detail:     map[string]interface{}{"family_id": claims.FamilyID},
			ClientAddr: clientAddr,
		})
		return nil, domainerrors.ErrTokenReuse
	}

	pair, sessionID, err := s.signPair(user, successor)
	if err != nil {
		return nil, err
	}

	s.audit.TryRecord(ctx, AuditEvent{
		ActorID:    user.ID,
		ActorName:  user.Username,
		Action:     model.ActionTokenRefresh,
		ClientAddr: clientAddr,
		SessionID:  sessionID,
	})

	return pair, nil
}

// Logout revokes every refresh token the user holds, across all
// families. Idempotent; the access token is left to expire on its own.
func (s *AuthService) Logout(ctx context.Context, refreshToken, clientAddr string) error {
	claims, err := s.jwt.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return err
	}

	if err := s.tokens.RevokeAllForUser(ctx, claims.Subject); err != nil {
		return err
	}

	s.audit.TryRecord(ctx, AuditEvent{
		ActorID:    claims.Subject,
		ActorName:  claims.Username,
		Action:     model.ActionLogout,
		ClientAddr: clientAddr,
	})
	return nil
}

// ChangePassword rotates the caller's own password. The new password
// must pass policy and must not match the current hash or recent
// history. Every session is revoked on success.
func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, req dto.ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}

	ok, verr := s.passwords.Verify(req.CurrentPassword, user.PasswordHash)
	if verr != nil {
		return domainerrors.WrapError(domainerrors.ErrInternal, verr)
	}
	if !ok {
		return domainerrors.ErrIncorrectPassword
	}

	if err := s.passwords.Validate(req.NewPassword); err != nil {
		return err
	}

	if match, _ := s.passwords.Verify(req.NewPassword, user.PasswordHash); match {
		return domainerrors.ErrPasswordReused
	}
	history, err := s.users.PasswordHistory(ctx, user.ID, s.cfg.PasswordHistoryCount)
	if err != nil {
		return err
	}
	for _, oldHash := range history {
		match, verr := s.passwords.Verify(req.NewPassword, oldHash)
		if verr != nil {
			s.log.Error("archived password hash unreadable",
				zap.String("user_id", user.ID),
				zap.Error(verr))
			continue
		}
		if match {
			return domainerrors.ErrPasswordReused
		}
	}

	newHash, err := s.passwords.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if err := s.users.ChangePassword(ctx, user.ID, user.PasswordHash, newHash, now, s.cfg.PasswordHistoryCount); err != nil {
		return err
	}

	if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
		return err
	}

	logger.LogAuth(s.log, user.ID, "password_change", true)
	s.audit.TryRecord(ctx, AuditEvent{
		ActorID:    user.ID,
		ActorName:  user.Username,
		Action:     model.ActionPasswordChange,
		ClientAddr: actor.ClientAddr,
		SessionID:  actor.SessionID,
	})
	return nil
}

// Setup creates the first admin account. Allowed exactly once, while
// the user table is empty.
func (s *AuthService) Setup(ctx context.Context, req dto.SetupRequest, clientAddr string) (*model.User, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, domainerrors.ErrSetupDone
	}

	if err := s.passwords.Validate(req.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("initial admin account created", zap.String("username", user.Username))
	s.audit.TryRecord(ctx, AuditEvent{
		ActorID:    user.ID,
		ActorName:  user.Username,
		Action:     model.ActionSetup,
		TargetType: "user",
		TargetID:   user.ID,
		ClientAddr: clientAddr,
	})
	return user, nil
}

// CreateUser provisions an account. Admin only; enforced at the router.
func (s *AuthService) CreateUser(ctx context.Context, actor Actor, req dto.CreateUserRequest) (*model.User, error) {
	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, domainerrors.ErrUsernameExists
	} else if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	if err := s.passwords.Validate(req.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.TryRecord(ctx, AuditEvent{
		ActorID:    actor.UserID,
		ActorName:  actor.Username,
		Action:     model.ActionUserCreate,
		TargetType: "user",
		TargetID:   user.ID,
		Detail:     map[string]interface{}{"username": user.Username, "role": user.Role},
		ClientAddr: actor.ClientAddr,
		SessionID:  actor.SessionID,
	})
	return user, nil
}

// UpdateUser changes role or active flag. Admins cannot demote or
// deactivate themselves; that path to an adminless system stays shut.
func (s *AuthService) UpdateUser(ctx context.Context, actor Actor, id string, req dto.UpdateUserRequest) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	detail := make(map[string]interface{})
	if req.Role != nil && *req.Role != user.Role {
		if actor.UserID == id {
			return nil, domainerrors.ErrForbidden
		}
		updates["role"] = *req.Role
		detail["role"] = *req.Role
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		if actor.UserID == id {
			return nil, domainerrors.ErrForbidden
		}
		updates["is_active"] = *req.IsActive
		detail["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		updates["updated_at"] = s.now().UTC()
		if err := s.users.Update(ctx, id, updates); err != nil {
			return nil, err
		}
		// A deactivated account loses its sessions immediately.
		if active, ok := updates["is_active"].(bool); ok && !active {
			if err := s.tokens.RevokeAllForUser(ctx, id); err != nil {
				return nil, err
			}
		}
		s.audit.TryRecord(ctx, AuditEvent{
			ActorID:    actor.UserID,
			ActorName:  actor.Username,
			Action:     model.ActionUserUpdate,
			TargetType: "user",
			TargetID:   id,
			Detail:     detail,
			ClientAddr: actor.ClientAddr,
			SessionID:  actor.SessionID,
		})
	}

	return s.users.GetByID(ctx, id)
}

// GetUser returns one account.
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers returns accounts with pagination.
func (s *AuthService) ListUsers(ctx context.Context, page, pageSize int) ([]model.User, int64, error) {
	return s.users.List(ctx, page, pageSize)
}

// SetupRequired reports whether the deployment has no accounts yet.
func (s *AuthService) SetupRequired(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

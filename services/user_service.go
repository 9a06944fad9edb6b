package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	errInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthorized)
	errInvalidRefresh     = fmt.Errorf("invalid refresh token: %w", apperrors.ErrUnauthorized)
	errAccountDisabled    = fmt.Errorf("account disabled: %w", apperrors.ErrForbidden)
)

// Session is the result of a login or a refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

type UserService struct {
	users  database.UserStore
	tokens database.RefreshTokenStore
	tm     *utils.TokenManager
	now    func() time.Time
}

func NewUserService(users database.UserStore, tokens database.RefreshTokenStore, tm *utils.TokenManager) *UserService {
	return &UserService{users: users, tokens: tokens, tm: tm, now: time.Now}
}

// RefreshTTL is how long an issued refresh token stays valid.
func (s *UserService) RefreshTTL() time.Duration {
	return s.tm.RefreshTTL
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" || utils.CheckPassword(user.PasswordHash, password) != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, errAccountDisabled
	}
	return s.issue(ctx, user)
}

func (s *UserService) issue(ctx context.Context, user *models.User) (*Session, error) {
	access, err := s.tm.GenerateAccessToken(user.ID.Hex(), user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.tm.GenerateRefreshToken(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now().UTC()
	err = s.tokens.InsertRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(refresh),
		ExpiresAt: now.Add(s.tm.RefreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh rotates the refresh token: the presented one is revoked and points at its replacement.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, errInvalidRefresh
	}
	if _, err := s.tm.ValidateRefreshToken(refreshToken); err != nil {
		return nil, errInvalidRefresh
	}

	now := s.now().UTC()
	rt, err := s.tokens.FindActiveRefreshToken(ctx, utils.HashToken(refreshToken), now)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, errInvalidRefresh
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, rt.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, errInvalidRefresh
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errAccountDisabled
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	replacedBy := utils.HashToken(session.RefreshToken)
	if err := s.tokens.RevokeRefreshToken(ctx, rt.ID, &replacedBy, now); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	return session, nil
}

// Logout revokes the refresh token if there is one; failures are only logged.
func (s *UserService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if err := s.tokens.RevokeRefreshTokenByHash(ctx, utils.HashToken(refreshToken), s.now().UTC()); err != nil {
		log.Println("[auth.logout] revoke failed:", err)
	}
}

func (s *UserService) create(ctx context.Context, in dto.RegisterUserDTO, role models.Role) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, apperrors.Invalid("email", "is required")
	}
	if len(in.Password) < 8 {
		return nil, apperrors.Invalid("password", "must be at least 8 characters")
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           bson.NewObjectID(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Register opens a customer account.
func (s *UserService) Register(ctx context.Context, in dto.RegisterUserDTO) (*models.User, error) {
	return s.create(ctx, in, models.RoleUser)
}

func (s *UserService) CreateAdmin(ctx context.Context, in dto.RegisterUserDTO) (*models.User, error) {
	return s.create(ctx, in, models.RoleAdmin)
}

// ChangePassword also revokes every refresh token of the user.
func (s *UserService) ChangePassword(ctx context.Context, userID bson.ObjectID, current, next string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if utils.CheckPassword(user.PasswordHash, current) != nil {
		return fmt.Errorf("current password is incorrect: %w", apperrors.ErrUnauthorized)
	}
	if len(next) < 8 {
		return apperrors.Invalid("newPassword", "must be at least 8 characters")
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.UpdateUser(ctx, userID, bson.M{"passwordHash": hash, "updatedAt": now}); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllRefreshTokens(ctx, userID, now); err != nil {
		log.Println("[users.password] revoke refresh tokens:", err)
	}
	return nil
}

func (s *UserService) Profile(ctx context.Context, userID bson.ObjectID) (*models.User, error) {
	return s.users.GetUser(ctx, userID)
}

// ResolveExternal maps a hosted-provider identity to a profile, creating a
// customer profile the first time the email is seen.
func (s *UserService) ResolveExternal(ctx context.Context, ident *utils.ExternalIdentity) (*models.User, error) {
	now := s.now().UTC()
	user, created, err := s.users.UpsertUserByEmail(ctx, &models.User{
		Email:      normalizeEmail(ident.Email),
		ExternalID: ident.UID,
		Role:       models.RoleUser,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if created {
		log.Printf("[auth.oidc] created profile for %s", user.Email)
	}
	return user, nil
}

// Authorize loads the caller's profile and checks it is active and holds one of roles.
func (s *UserService) Authorize(ctx context.Context, userID bson.ObjectID, roles ...models.Role) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("unknown user: %w", apperrors.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errAccountDisabled
	}
	if len(roles) == 0 {
		return user, nil
	}
	for _, r := range roles {
		if user.Role == r {
			return user, nil
		}
	}
	return nil, fmt.Errorf("requires role %s: %w", roles[0], apperrors.ErrForbidden)
}

func (s *UserService) SeedAdmin(ctx context.Context, email, password string) error {
	return utils.SeedAdminUser(ctx, s.users, email, password)
}

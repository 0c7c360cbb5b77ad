package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/brickline-erp/brickline/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// Service wraps authentication business rules. Issued tokens live in Redis
// with a TTL; logout deletes them.
type Service struct {
	repo     Repository
	tokens   *redis.Client
	tokenTTL time.Duration
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *redis.Client, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, tokens: tokens, tokenTTL: tokenTTL}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return account, nil
}

// IssueToken stores a fresh bearer token for the account.
func (s *Service) IssueToken(ctx context.Context, account *Account) (string, time.Time, error) {
	token := uuid.NewString()
	identity := shared.Identity{AccountID: account.ID, Role: account.Role, VendorID: account.VendorID}
	payload, err := json.Marshal(identity)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().UTC().Add(s.tokenTTL)
	if err := s.tokens.Set(ctx, tokenKey(token), payload, s.tokenTTL).Err(); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Resolve maps a bearer token back to its identity.
func (s *Service) Resolve(ctx context.Context, token string) (shared.Identity, error) {
	payload, err := s.tokens.Get(ctx, tokenKey(token)).Bytes()
	if err == redis.Nil {
		return shared.Identity{}, ErrTokenNotFound
	}
	if err != nil {
		return shared.Identity{}, err
	}
	var identity shared.Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		return shared.Identity{}, err
	}
	return identity, nil
}

// RevokeToken drops the token; subsequent requests with it fail.
func (s *Service) RevokeToken(ctx context.Context, token string) error {
	return s.tokens.Del(ctx, tokenKey(token)).Err()
}

func tokenKey(token string) string {
	return fmt.Sprintf("auth:token:%s", token)
}

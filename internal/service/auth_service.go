package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aegistech/base-markets/internal/catalog"
	"github.com/aegistech/base-markets/internal/crypto"
	"github.com/aegistech/base-markets/internal/domain"
)

// Claims is the JWT payload issued after a wallet login.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
	NonceTTL time.Duration
}

// Challenge is the message a wallet must sign to log in.
type Challenge struct {
	Address   common.Address
	Nonce     string
	Message   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Profile   domain.UserProfile
}

// AuthService issues login challenges and JWTs for wallet addresses.
type AuthService struct {
	nonces domain.NonceStore
	cfg    AuthConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(nonces domain.NonceStore, cfg AuthConfig, logger *slog.Logger) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.NonceTTL <= 0 {
		cfg.NonceTTL = 5 * time.Minute
	}
	return &AuthService{
		nonces: nonces,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "auth_service")),
		now:    time.Now,
	}
}

// Nonce stores a fresh nonce for addr and returns the message to sign.
// A new challenge replaces any earlier one.
func (s *AuthService) Nonce(ctx context.Context, addr common.Address) (Challenge, error) {
	nonce := uuid.NewString()
	now := s.now().UTC().Truncate(time.Second)
	// The issue time is part of the signed message, so it is stored with
	// the nonce.
	stored := nonce + "@" + strconv.FormatInt(now.Unix(), 10)
	if err := s.nonces.Put(ctx, addr, stored, s.cfg.NonceTTL); err != nil {
		return Challenge{}, fmt.Errorf("auth_service: store nonce: %w", err)
	}
	return Challenge{
		Address:   addr,
		Nonce:     nonce,
		Message:   crypto.LoginMessage(addr, nonce, now),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.NonceTTL),
	}, nil
}

// Verify checks sig over the last challenge issued to addr and returns a
// session. The nonce is consumed whether or not the signature is valid.
func (s *AuthService) Verify(ctx context.Context, addr common.Address, sig string) (Session, error) {
	stored, err := s.nonces.Take(ctx, addr)
	if err != nil {
		if errors.Is(err, domain.ErrNonceExpired) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("auth_service: take nonce: %w", err)
	}
	nonce, issuedAt, err := splitNonce(stored)
	if err != nil {
		return Session{}, err
	}

	msg := crypto.LoginMessage(addr, nonce, issuedAt)
	if err := crypto.VerifyPersonal(addr, msg, sig); err != nil {
		s.logger.WarnContext(ctx, "login signature rejected",
			slog.String("address", addr.Hex()),
			slog.String("error", err.Error()),
		)
		return Session{}, err
	}

	token, exp, err := s.issue(addr)
	if err != nil {
		return Session{}, err
	}
	s.logger.InfoContext(ctx, "wallet logged in", slog.String("address", addr.Hex()))
	return Session{Token: token, ExpiresAt: exp, Profile: catalog.Profile(addr)}, nil
}

func splitNonce(stored string) (string, time.Time, error) {
	nonce, ts, ok := strings.Cut(stored, "@")
	if !ok {
		return "", time.Time{}, fmt.Errorf("auth_service: malformed nonce: %w", domain.ErrNonceExpired)
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth_service: malformed nonce: %w", domain.ErrNonceExpired)
	}
	return nonce, time.Unix(unix, 0).UTC(), nil
}

func (s *AuthService) issue(addr common.Address) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.TokenTTL)
	claims := &Claims{
		Address: addr.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   addr.Hex(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth_service: sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken validates a bearer token and returns the logged-in address.
func (s *AuthService) ParseToken(token string) (common.Address, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.key,
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !parsed.Valid || !common.IsHexAddress(claims.Subject) {
		return common.Address{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	return common.HexToAddress(claims.Subject), nil
}

func (s *AuthService) key(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return s.cfg.Secret, nil
}

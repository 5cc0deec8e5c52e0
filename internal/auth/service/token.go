package service

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/auth/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/clock"
	"github.com/fckfck97/cie-corpoindustrial/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTTL  = time.Hour
	refreshTTL = 7 * 24 * time.Hour
)

type TokenManager struct {
	secret []byte
	clock  clock.Clock
}

func NewTokenManager(cfg config.Config, clk clock.Clock) domain.TokenIssuer {
	return &TokenManager{secret: []byte(cfg.AuthJWTSecret), clock: clk}
}

func (m *TokenManager) IssuePair(account *accountdomain.Account) (string, string, error) {
	access, err := m.sign(account, "access", accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := m.sign(account, "refresh", refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (m *TokenManager) sign(account *accountdomain.Account, typ string, ttl time.Duration) (string, error) {
	now := m.clock.Now()
	claims := jwt.MapClaims{
		"sub":   account.ID.String(),
		"email": account.Email,
		"role":  account.Role,
		"typ":   typ,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) ParseAccess(raw string) (*domain.Claims, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.clock.Now))
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != "access" {
		return nil, domain.ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	id, err := snowflake.ParseString(sub)
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return &domain.Claims{AccountID: id, Email: email, Role: role}, nil
}

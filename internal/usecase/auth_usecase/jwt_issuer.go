package auth

import (
	"errors"
	"strconv"
	"time"

	"canteen/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid access token")

// AccessClaims はAccessTokenの中身。sub はユーザーIDの文字列
type AccessClaims struct {
	Role         model.Role `json:"role"`
	TokenVersion int        `json:"tv"`
	jwt.RegisteredClaims
}

// UserID は sub を数値にして返す
func (c AccessClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// HS256で署名するAccessTokenIssuer
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(secret string, ttl time.Duration) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}, nil
}

func (i *JWTIssuer) Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (string, time.Time, error) {
	exp := now.Add(i.ttl)
	claims := AccessClaims{
		Role:         role,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// JWTVerifier はAccessTokenを検証する。HS256以外は受け付けない
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
	clock  Clock
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// clock が nil なら現在時刻で exp/iat を見る
func NewJWTVerifier(secret string, clock Clock) *JWTVerifier {
	if clock == nil {
		clock = wallClock{}
	}
	return &JWTVerifier{
		secret: []byte(secret),
		// 期限は clock で自前に確認する
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		clock: clock,
	}
}

func (v *JWTVerifier) Verify(raw string) (AccessClaims, error) {
	var claims AccessClaims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}

	now := v.clock.Now()
	if !claims.VerifyExpiresAt(now, true) || !claims.VerifyIssuedAt(now, false) {
		return AccessClaims{}, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return AccessClaims{}, err
	}
	switch claims.Role {
	case model.RoleUser, model.RoleAdmin:
	default:
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.TokenVersion < 0 {
		return AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}

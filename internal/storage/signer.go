package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// URLSigner issues and verifies time-limited download tokens for stored
// objects. A signed URL is the only read path exposed to clients.
type URLSigner struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
}

type downloadClaims struct {
	FileID int `json:"file_id"`
	jwt.RegisteredClaims
}

// NewURLSigner builds a signer. baseURL is the externally reachable prefix of
// the download endpoint, without a trailing slash.
func NewURLSigner(secret, baseURL string, ttl time.Duration) (*URLSigner, error) {
	if secret == "" {
		return nil, errors.New("signing secret is empty")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &URLSigner{secret: []byte(secret), baseURL: baseURL, ttl: ttl}, nil
}

// SignedURL returns an expiring download link for a file record.
func (s *URLSigner) SignedURL(fileID int) (string, error) {
	claims := &downloadClaims{
		FileID: fileID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/files/%d/download?token=%s", s.baseURL, fileID, token), nil
}

// VerifyToken checks a download token and returns the file id it grants.
func (s *URLSigner) VerifyToken(tokenString string) (int, error) {
	claims := &downloadClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.FileID == 0 {
		return 0, errors.New("invalid download token")
	}
	return claims.FileID, nil
}

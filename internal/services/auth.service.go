package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"xenocpu/internal/config"
)

const (
	secretKeyFile = ".xenocpu-secret-key"
	tokenIssuer   = "xenocpu-server"
	minSecretLen  = 32
)

// AuthService manages JWT token generation and validation
type AuthService struct {
	secretKey   string
	tokenExpiry time.Duration
	log         *zap.SugaredLogger
}

// CustomClaims represents the JWT claims structure
type CustomClaims struct {
	ClientName string `json:"client_name"`
	jwt.RegisteredClaims
}

// NewAuthService creates the auth service. Without a configured secret the
// key is loaded from, or generated into, ~/.xenocpu-secret-key.
func NewAuthService(cfg config.AuthConfig, log *zap.SugaredLogger) *AuthService {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		secretKey = loadOrCreateSecret(secretKeyPath(), log)
	}

	// Ensure secret key is at least 32 bytes for HMAC-SHA256
	if len(secretKey) < minSecretLen {
		log.Warnw("secret key shorter than recommended, padding", "length", len(secretKey))
		padding := make([]byte, minSecretLen-len(secretKey))
		_, _ = rand.Read(padding)
		secretKey += hex.EncodeToString(padding)
	}

	tokenExpiry := cfg.TokenExpiry
	if tokenExpiry == 0 {
		tokenExpiry = 90 * 24 * time.Hour
	}

	return &AuthService{secretKey: secretKey, tokenExpiry: tokenExpiry, log: log}
}

func secretKeyPath() string {
	homeDir, _ := os.UserHomeDir()
	if homeDir == "" {
		return filepath.Join(os.TempDir(), secretKeyFile)
	}
	return filepath.Join(homeDir, secretKeyFile)
}

func loadOrCreateSecret(keyFile string, log *zap.SugaredLogger) string {
	if data, err := os.ReadFile(keyFile); err == nil && len(data) > 0 {
		log.Infow("loaded persisted secret key", "path", keyFile)
		return strings.TrimSpace(string(data))
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "xenocpu"
	}

	var secretKey string
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		secretKey = fmt.Sprintf("xenocpu-%s-%d-backup", hostname, time.Now().UnixNano())
		log.Warnw("random generation failed, using fallback key", "error", err)
	} else {
		secretKey = fmt.Sprintf("xenocpu-%s-%s", hostname, hex.EncodeToString(randomBytes))
	}

	if err := os.WriteFile(keyFile, []byte(secretKey), 0600); err != nil {
		log.Warnw("could not persist secret key", "path", keyFile, "error", err)
	} else {
		log.Infow("generated and persisted secret key", "path", keyFile)
	}
	return secretKey
}

// GenerateToken creates a new JWT token for a named client
func (as *AuthService) GenerateToken(clientName string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		ClientName: clientName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(as.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(as.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies and parses a JWT token
func (as *AuthService) ValidateToken(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(as.secretKey), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// TokenExpiry returns when a token issued now will expire
func (as *AuthService) TokenExpiry() time.Time {
	return time.Now().Add(as.tokenExpiry)
}

package config

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

type Config struct {
	HTTPPort  string
	HTTPSPort string
	Domain    string

	DBPath string

	TURNPort  int
	TURNRealm string

	JWTSecret string
	VAPIDKeys *VAPIDKeys

	// RingTimeout bounds how long a call may stay ringing before the server
	// tears it down. Zero (the default) disables the bound and matches the
	// behavior the web client was written against.
	RingTimeout time.Duration

	// HTTPOnly disables TLS and serves the API on HTTPPort only.
	HTTPOnly bool
}

type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Load builds the configuration from environment variables with sane
// defaults. Secrets (JWT, VAPID) are loaded from the keys directory next to
// the executable, or generated and persisted on first run.
func Load(httpOnly bool) *Config {
	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		HTTPSPort:   getEnv("HTTPS_PORT", "8443"),
		Domain:      getEnv("DOMAIN", "localhost"),
		DBPath:      getEnv("DB_PATH", "chatwire.db"),
		TURNPort:    getEnvInt("TURN_PORT", 3478),
		TURNRealm:   getEnv("TURN_REALM", "chatwire"),
		RingTimeout: getEnvDuration("RING_TIMEOUT", 0),
		HTTPOnly:    httpOnly,
	}

	cfg.JWTSecret = loadOrGenerateJWTSecret()
	cfg.VAPIDKeys = loadOrGenerateVAPIDKeys()

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func loadOrGenerateJWTSecret() string {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}

	keysDir := keysDirectory()
	secretFile := filepath.Join(keysDir, "jwt-secret.key")

	if data, err := os.ReadFile(secretFile); err == nil {
		if secret := strings.TrimSpace(string(data)); secret != "" {
			return secret
		}
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	secret := base64.URLEncoding.EncodeToString(buf)

	// Config loads before the application logger exists, so the default
	// logger carries these warnings.
	if err := os.MkdirAll(keysDir, 0700); err != nil {
		slog.Default().Warn("failed to create keys directory", "dir", keysDir, "error", err)
	} else if err := os.WriteFile(secretFile, []byte(secret), 0600); err != nil {
		slog.Default().Warn("failed to save JWT secret", "file", secretFile, "error", err)
	}

	return secret
}

func loadOrGenerateVAPIDKeys() *VAPIDKeys {
	subject := getEnv("VAPID_SUBJECT", "mailto:admin@chatwire.app")

	if pub, priv := os.Getenv("VAPID_PUBLIC_KEY"), os.Getenv("VAPID_PRIVATE_KEY"); pub != "" && priv != "" {
		return &VAPIDKeys{PublicKey: pub, PrivateKey: priv, Subject: subject}
	}

	keysDir := keysDirectory()
	publicFile := filepath.Join(keysDir, "vapid-public.key")
	privateFile := filepath.Join(keysDir, "vapid-private.key")

	if pubData, err := os.ReadFile(publicFile); err == nil {
		if privData, err := os.ReadFile(privateFile); err == nil {
			return &VAPIDKeys{
				PublicKey:  strings.TrimSpace(string(pubData)),
				PrivateKey: strings.TrimSpace(string(privData)),
				Subject:    subject,
			}
		}
	}

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		panic("failed to generate VAPID keys: " + err.Error())
	}

	if err := os.MkdirAll(keysDir, 0700); err != nil {
		slog.Default().Warn("failed to create keys directory", "dir", keysDir, "error", err)
	} else if err := os.WriteFile(publicFile, []byte(publicKey), 0600); err != nil {
		slog.Default().Warn("failed to save VAPID public key", "file", publicFile, "error", err)
	} else if err := os.WriteFile(privateFile, []byte(privateKey), 0600); err != nil {
		slog.Default().Warn("failed to save VAPID private key", "file", privateFile, "error", err)
	}

	return &VAPIDKeys{PublicKey: publicKey, PrivateKey: privateKey, Subject: subject}
}

func keysDirectory() string {
	execPath, err := os.Executable()
	if err != nil {
		return "keys"
	}
	return filepath.Join(filepath.Dir(execPath), "keys")
}

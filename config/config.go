package config

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// SessionCookieName is the cookie that carries the session credential.
const SessionCookieName = "jwt"

type StreamConfig struct {
	APIKey         string
	APISecret      string
	BaseURL        string
	ReservedUserID string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Config struct {
	Port        string
	Environment string
	MongoURI    string
	MongoDB     string
	RedisAddr   string
	JWTSecret   string
	FrontendURL string
	Stream      StreamConfig
	Google      GoogleConfig
}

// Load reads .env (if present) and builds the process-wide configuration.
// JWT_SECRET has no fallback; the server refuses to start without it.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	return Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "lingo_db"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:   jwtSecret,
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		Stream: StreamConfig{
			APIKey:         getEnv("STREAM_API_KEY", ""),
			APISecret:      getEnv("STREAM_API_SECRET", ""),
			BaseURL:        getEnv("STREAM_BASE_URL", "https://chat.stream-io-api.com"),
			ReservedUserID: getEnv("STREAM_RESERVED_USER", "system"),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		},
	}
}

// IsProd reports whether the server runs with production cookie settings.
func (c Config) IsProd() bool {
	return c.Environment == "production"
}

// CorsOptions allows the frontend origin with credentials (cookie auth).
func (c Config) CorsOptions() cors.Options {
	origins := []string{c.FrontendURL}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		origins = append(origins, strings.Split(extra, ",")...)
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}
}

// GoogleOauthConfig builds the OAuth code-flow configuration.
func (c Config) GoogleOauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  c.Google.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

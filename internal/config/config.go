package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
    "strconv"
)

// Config holds the values every server process needs.  Each field maps to
// one required environment variable; DB_PASS may be empty.
type Config struct {
    Env            string // APP_ENV (dev, test, prod)
    Port           string // APP_PORT
    DBUser         string
    DBPass         string
    DBHost         string
    DBPort         string
    DBName         string
    JWTSecret      string
    AccessTTLMin   int // access token lifetime in minutes
    RefreshTTLDays int // refresh token lifetime in days
    BcryptCost     int
}

// Load reads the required variables.  A missing or malformed value stops
// the process with a fatal log message.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"),
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),
    }
}

func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// config.go

package main

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type config struct {
	Addr          string
	MongoURI      string
	DBName        string
	JWTSecret     []byte
	BrevoAPIKey   string
	EmailFrom     string
	AdminEmail    string
	AdminPassword string
	CORSOrigins   []string
}

func loadConfig() config {
	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}

	cfg := config{
		Addr:          ":" + envOr("PORT", "8080"),
		MongoURI:      os.Getenv("MONGO_PUBLIC_URL"),
		DBName:        envOr("DB_NAME", "eyes"),
		JWTSecret:     []byte(envOr("JWT_SECRET", "supersecretkey")),
		BrevoAPIKey:   os.Getenv("BREVO_API_KEY"),
		EmailFrom:     envOr("EMAIL_FROM", "noreply@eyesperfume.com"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = envOr("MONGO_URL", "mongodb://localhost:27017")
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	} else {
		cfg.CORSOrigins = []string{"http://localhost:5173"}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

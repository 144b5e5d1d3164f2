package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/elskow/authguard/internal/auth"
	"github.com/elskow/authguard/internal/server"
)

func main() {
	subject := flag.String("subject", "admin", "token subject")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if os.Getenv("APP_ENV") == "" {
		os.Setenv("APP_ENV", server.EnvDevelopment)
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Auth.AdminJWTSecret == "" {
		log.Fatal("auth.admin_jwt_secret is not set")
	}

	token, err := auth.SignAdminToken(cfg.Auth.AdminJWTSecret, *subject, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}

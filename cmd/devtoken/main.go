package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/config"
)

// devtoken prints a signed access token for local testing of guarded routes.
func main() {
	subject := flag.String("sub", "dev-admin", "token subject")
	role := flag.String("role", string(models.RoleAdmin), "token role (ADMIN or STAFF)")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to JWT_EXPIRATION")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	expiration := cfg.JWT.Expiration
	if *ttl > 0 {
		expiration = *ttl
	}

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiration: expiration})
	token, expires, err := tokens.Issue(*subject, models.UserRole(strings.ToUpper(*role)))
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
	log.Printf("expires at %s", expires.Format(time.RFC3339))
}

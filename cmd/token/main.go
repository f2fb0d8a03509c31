// Command token mints a JWT for local development, signed with JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/courtside/internal/auth"
	"github.com/freeeve/courtside/internal/config"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		userID string
		role   string
		ttl    time.Duration
	)
	flag.StringVar(&userID, "user", "dev-scorer", "User ID (token subject)")
	flag.StringVar(&role, "role", string(auth.RoleScorer), "Role: scorer or viewer")
	flag.DurationVar(&ttl, "ttl", auth.DefaultTokenExpiry, "Token lifetime")
	flag.Parse()

	r := auth.Role(role)
	if r != auth.RoleScorer && r != auth.RoleViewer {
		log.Fatal().Str("role", role).Msg("Unknown role")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret).WithExpiry(ttl).GenerateToken(userID, r)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}
	fmt.Println(token)
}

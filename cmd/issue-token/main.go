package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/stemsi/quizgrade/internal/config"
	"github.com/stemsi/quizgrade/internal/logger"
	"github.com/stemsi/quizgrade/internal/service"
	"golang.org/x/term"
)

func main() {
	var (
		subject      string
		scopes       string
		ttl          time.Duration
		promptSecret bool
	)
	flag.StringVar(&subject, "subject", "", "Token subject, e.g. the calling service's name")
	flag.StringVar(&scopes, "scopes", string(service.ScopeGrade), "Comma-separated scopes: grade, admin")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	flag.BoolVar(&promptSecret, "prompt-secret", false, "Read the signing secret from the terminal instead of JWT_SECRET")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.New(os.Stderr, cfg.LogLevel, "pretty")

	// ─── CLI Input ─────────────────────────────────────────────────────
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	reader := bufio.NewReader(os.Stdin)

	if subject == "" && interactive {
		fmt.Fprint(os.Stderr, "Enter Subject: ")
		line, _ := reader.ReadString('\n')
		subject = strings.TrimSpace(line)
	}
	if subject == "" {
		log.Fatal().Msg("Subject is required")
	}

	if promptSecret {
		if !interactive {
			log.Fatal().Msg("-prompt-secret needs a terminal")
		}
		fmt.Fprint(os.Stderr, "Enter Signing Secret: ")
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read secret")
		}
		cfg.JWTSecret = string(secret)
	}
	if len(cfg.JWTSecret) < 16 {
		log.Warn().Msg("Signing secret is shorter than 16 bytes")
	}

	granted, err := parseScopes(scopes)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid scopes")
	}
	if ttl <= 0 {
		log.Fatal().Dur("ttl", ttl).Msg("TTL must be positive")
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	token, err := service.NewAuthService(cfg).IssueToken(subject, ttl, granted...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	log.Info().
		Str("subject", subject).
		Strs("scopes", strings.Split(scopes, ",")).
		Time("expires_at", time.Now().Add(ttl)).
		Msg("Token issued")
	fmt.Println(token)
}

func parseScopes(raw string) ([]service.Scope, error) {
	var out []service.Scope
	for _, s := range strings.Split(raw, ",") {
		switch sc := service.Scope(strings.TrimSpace(s)); sc {
		case service.ScopeGrade, service.ScopeAdmin:
			out = append(out, sc)
		case "":
		default:
			return nil, fmt.Errorf("unknown scope %q", sc)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scopes given")
	}
	return out, nil
}

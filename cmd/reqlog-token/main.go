// Command reqlog-token mints HS256 bearer tokens for the reqlog demo service.
// The signing key is read from JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"reqlog/internal/domain"
	"reqlog/internal/pipeline/middleware"
)

func main() {
	sub := flag.String("sub", "demo-user", "token subject")
	scopes := flag.String("scopes", "items:read items:write", "space-separated scopes")
	ttl := flag.Duration("ttl", 15*time.Minute, "token lifetime")
	raw := flag.Bool("raw", false, "print only the access token")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	pair, err := middleware.IssueToken([]byte(secret), domain.Principal{
		ID:     *sub,
		Scopes: strings.Fields(*scopes),
	}, *ttl, time.Now())
	if err != nil {
		slog.Error("issuing token", "error", err)
		os.Exit(1)
	}

	if *raw {
		fmt.Println(pair.AccessToken)
		return
	}
	if err := json.NewEncoder(os.Stdout).Encode(pair); err != nil {
		slog.Error("writing token", "error", err)
		os.Exit(1)
	}
}

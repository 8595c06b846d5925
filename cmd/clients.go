package cmd

import (
	"context"
	"net/http"
	"os"

	"golang.org/x/oauth2"

	"github.com/biothings/trapi-testing-tools/internal/config"
	"github.com/biothings/trapi-testing-tools/pkg/logging"
)

// httpClientFor returns an HTTP client that sends the bearer token
// configured for app, or nil when the app needs no credentials.
func httpClientFor(ctx context.Context, cfg config.Config, app string) *http.Client {
	auth, ok := cfg.Auth[app]
	if !ok {
		return nil
	}
	token := os.Getenv(auth.TokenEnv)
	if token == "" {
		logging.Warn("Auth", "%s is not set, querying %s without credentials", auth.TokenEnv, app)
		return nil
	}
	logging.Debug("Auth", "Using bearer token from %s for %s", auth.TokenEnv, app)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

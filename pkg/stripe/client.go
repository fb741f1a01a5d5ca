// Package stripe holds the process-wide Stripe setup and the checkout
// gateway built on it.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/swapmeet-backend/pkg/config"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	defaultCurrency = "usd"

	// sessionPlaceholder is expanded by Stripe so the success page can
	// confirm the session it came back from.
	sessionPlaceholder = "{CHECKOUT_SESSION_ID}"
)

// keyPrefixes lists the secret and restricted key prefixes each env accepts.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client carries the env-specific settings. stripe-go's resource packages
// read the global key that NewClient sets.
type Client struct {
	environment   string
	signingSecret string
	currency      string
	successURL    string
	cancelURL     string
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(cfg.APIKey)
	if err := validateAPIKey(env, key); err != nil {
		return nil, err
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}
	if err := validateRedirects(cfg.SuccessURL, cfg.CancelURL); err != nil {
		return nil, err
	}

	stripe.Key = key
	stripe.SetAppInfo(&stripe.AppInfo{Name: "swapmeet-backend"})

	c := &Client{
		environment:   env,
		signingSecret: secret,
		currency:      strings.ToLower(strings.TrimSpace(cfg.Currency)),
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"stripe_env": env, "currency": c.Currency()}), "stripe client initialized")
	}
	return c, nil
}

// Currency is the lowercase ISO code sessions are created in.
func (c *Client) Currency() string {
	if c == nil || c.currency == "" {
		return defaultCurrency
	}
	return c.currency
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func normalizeEnv(raw string) (string, error) {
	env := strings.ToLower(strings.TrimSpace(raw))
	if env == "" {
		return testEnv, nil
	}
	if _, ok := keyPrefixes[env]; !ok {
		return "", errInvalidStripeEnv
	}
	return env, nil
}

// validateAPIKey refuses a live key in test mode and the reverse.
func validateAPIKey(env, key string) error {
	if key == "" {
		return errAPIKeyRequired
	}
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return errInvalidStripeEnv
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return nil
		}
	}
	return fmt.Errorf("stripe environment %q requires a key starting with %s", env, strings.Join(prefixes, " or "))
}

func validateRedirects(successURL, cancelURL string) error {
	for name, raw := range map[string]string{"success": successURL, "cancel": cancelURL} {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("stripe %s url must be absolute: %q", name, raw)
		}
	}
	if !strings.Contains(successURL, sessionPlaceholder) {
		return fmt.Errorf("stripe success url must contain %s", sessionPlaceholder)
	}
	return nil
}

// Package eventrelay ships per-transaction records off the edge over an
// Electrician forward relay. The relay is publish-only: records flow out,
// nothing comes back.
package eventrelay

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joeydtaylor/electrician/pkg/builder"
)

// Record is one transaction summary published at txn-close.
type Record struct {
	Handle   uint64 `json:"handle"`
	Method   string `json:"method"`
	Path     string `json:"path"`
	Status   int    `json:"status"`
	Duration int64  `json:"duration_ms"`
}

// Publisher accepts encoded records for delivery.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// noopPublisher discards records; used when no relay target is configured.
type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, []byte) error { return nil }

type builderPublisher struct {
	submit func(context.Context, []byte) error
}

func (p *builderPublisher) Publish(ctx context.Context, body []byte) error {
	return p.submit(ctx, body)
}

// NewFromEnv builds a publish-capable relay from Electrician primitives.
// It expects:
//
//	EDGE_RELAY_TARGET          = "host:port[,host2:port2]"   (required)
//
// Optional features (all off by default):
//
//	EDGE_RELAY_TLS_ENABLE      = "true" | "false"
//	EDGE_RELAY_TLS_CLIENT_CRT  = path (default: keys/tls/client.crt)
//	EDGE_RELAY_TLS_CLIENT_KEY  = path (default: keys/tls/client.key)
//	EDGE_RELAY_TLS_CA          = path (default: keys/tls/ca.crt)
//	EDGE_RELAY_TLS_INSECURE    = "true" | "false"  (dev only; OAuth HTTP client)
//
//	EDGE_RELAY_COMPRESS        = "snappy" | ""
//	EDGE_RELAY_ENCRYPT         = "aesgcm" | ""
//	EDGE_RELAY_AES256_KEY_HEX  = 64 hex chars (32 bytes)
//
//	EDGE_RELAY_STATIC_HEADERS  = "k=v,k2=v2"
//
// OAuth2 client credentials (all must be set to enable):
//
//	OAUTH_ISSUER_BASE / OAUTH_CLIENT_ID / OAUTH_CLIENT_SECRET
//	OAUTH_SCOPES (csv), OAUTH_REFRESH_LEEWAY (default 20s)
//
// If EDGE_RELAY_TARGET is absent it returns a noop Publisher.
func NewFromEnv() (Publisher, error) {
	raw := strings.TrimSpace(os.Getenv("EDGE_RELAY_TARGET"))
	if raw == "" {
		return noopPublisher{}, nil
	}
	targets := strings.Split(raw, ",")

	useTLS := strings.EqualFold(os.Getenv("EDGE_RELAY_TLS_ENABLE"), "true")
	tlsCrt := envOr("EDGE_RELAY_TLS_CLIENT_CRT", "keys/tls/client.crt")
	tlsKey := envOr("EDGE_RELAY_TLS_CLIENT_KEY", "keys/tls/client.key")
	tlsCA := envOr("EDGE_RELAY_TLS_CA", "keys/tls/ca.crt")
	tlsInsecure := strings.EqualFold(os.Getenv("EDGE_RELAY_TLS_INSECURE"), "true")

	useSnappy := strings.EqualFold(os.Getenv("EDGE_RELAY_COMPRESS"), "snappy")
	useAESGCM := strings.EqualFold(os.Getenv("EDGE_RELAY_ENCRYPT"), "aesgcm")
	var aesKey string
	if useAESGCM {
		k := strings.TrimSpace(os.Getenv("EDGE_RELAY_AES256_KEY_HEX"))
		rawKey, err := hex.DecodeString(k)
		if err != nil || len(rawKey) != 32 {
			return nil, fmt.Errorf("EDGE_RELAY_AES256_KEY_HEX must be 64 hex chars (32 bytes): %w", err)
		}
		aesKey = string(rawKey)
	}

	staticHeaders := parseKV(os.Getenv("EDGE_RELAY_STATIC_HEADERS"))

	oauthIssuer := strings.TrimSpace(os.Getenv("OAUTH_ISSUER_BASE"))
	oauthJWKS := strings.TrimSpace(os.Getenv("OAUTH_JWKS_URL"))
	oauthClientID := strings.TrimSpace(os.Getenv("OAUTH_CLIENT_ID"))
	oauthSecret := strings.TrimSpace(os.Getenv("OAUTH_CLIENT_SECRET"))
	oauthScopes := splitCSV(os.Getenv("OAUTH_SCOPES"))
	oauthLeeway := parseDur(envOr("OAUTH_REFRESH_LEEWAY", "20s"))
	oauthEnabled := oauthIssuer != "" && oauthClientID != "" && oauthSecret != ""

	logger := builder.NewLogger(builder.LoggerWithDevelopment(true))

	ctx := context.Background()
	wire := builder.NewWire[[]byte](ctx, builder.WireWithLogger[[]byte](logger))

	perf := builder.NewPerformanceOptions(useSnappy, builder.COMPRESS_SNAPPY)
	sec := builder.NewSecurityOptions(useAESGCM, builder.ENCRYPTION_AES_GCM)
	tlsCfg := builder.NewTlsClientConfig(
		useTLS,
		tlsCrt, tlsKey, tlsCA,
		tls.VersionTLS13, tls.VersionTLS13,
	)

	var relayStart func(context.Context) error

	if oauthEnabled {
		var authOpts = builder.NewForwardRelayAuthenticationOptionsOAuth2(nil)
		if oauthJWKS != "" {
			authOpts = builder.NewForwardRelayAuthenticationOptionsOAuth2(
				builder.NewForwardRelayOAuth2JWTOptions(oauthIssuer, oauthJWKS, []string{}, oauthScopes, 300),
			)
		}

		authHTTP := &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion:         tls.VersionTLS13,
					MaxVersion:         tls.VersionTLS13,
					InsecureSkipVerify: tlsInsecure, // dev only
				},
			},
		}
		ts := builder.NewForwardRelayRefreshingClientCredentialsSource(
			oauthIssuer, oauthClientID, oauthSecret, oauthScopes, oauthLeeway, authHTTP,
		)

		relay := builder.NewForwardRelay[[]byte](
			ctx,
			builder.ForwardRelayWithLogger[[]byte](logger),
			builder.ForwardRelayWithTarget[[]byte](targets...),
			builder.ForwardRelayWithPerformanceOptions[[]byte](perf),
			builder.ForwardRelayWithSecurityOptions[[]byte](sec, aesKey),
			builder.ForwardRelayWithTLSConfig[[]byte](tlsCfg),
			builder.ForwardRelayWithStaticHeaders[[]byte](staticHeaders),
			builder.ForwardRelayWithAuthenticationOptions[[]byte](authOpts),
			builder.ForwardRelayWithOAuthBearer[[]byte](ts),
			builder.ForwardRelayWithInput(wire),
		)
		relayStart = relay.Start
	} else {
		relay := builder.NewForwardRelay[[]byte](
			ctx,
			builder.ForwardRelayWithLogger[[]byte](logger),
			builder.ForwardRelayWithTarget[[]byte](targets...),
			builder.ForwardRelayWithPerformanceOptions[[]byte](perf),
			builder.ForwardRelayWithSecurityOptions[[]byte](sec, aesKey),
			builder.ForwardRelayWithTLSConfig[[]byte](tlsCfg),
			builder.ForwardRelayWithStaticHeaders[[]byte](staticHeaders),
			builder.ForwardRelayWithInput(wire),
		)
		relayStart = relay.Start
	}

	if err := wire.Start(ctx); err != nil {
		return nil, fmt.Errorf("relay wire start: %w", err)
	}
	if err := relayStart(ctx); err != nil {
		return nil, fmt.Errorf("relay start: %w", err)
	}
	return &builderPublisher{
		submit: func(ctx context.Context, b []byte) error { return wire.Submit(ctx, b) },
	}, nil
}

// --- small helpers ---

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseKV(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) == 2 && kv[0] != "" {
			out[kv[0]] = kv[1]
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 20 * time.Second
	}
	return d
}

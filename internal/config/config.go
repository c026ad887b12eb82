package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gateway-auth/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	PortalTitle       string
	GatewayID         string
	ServerEmail       string
	AdminEmails       []string // recipients of new-user notifications
	LoginRedirectURL  string
	LogoutRedirectURL string
	AuthOptionsFile   string
	AuthOptions       domain.AuthOptions

	Keycloak Keycloak

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	EmailTemplateSource string // "dynamo" | "s3"
	S3BucketName        string
	S3TemplatePrefix    string

	SNSRegion        string
	SNSAdminTopicARN string // optional; new-user notices are also published here

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	SessionBackend      string // "dynamo" | "redis"
	SessionCookieName   string
	SessionCookieSecure bool
	SessionTTL          time.Duration
	RedisURL            string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string

	AllowedOrigins    []string // CORS allowed origins
	TrustProxyHeaders bool     // rate limiter keys on X-Forwarded-For instead of the socket address
}

// Keycloak holds the IAM endpoints and client credentials.
type Keycloak struct {
	BaseURL           string
	Realm             string
	ClientID          string
	ClientSecret      string
	AuthorizeURL      string
	TokenURL          string
	LogoutURL         string
	JWKSURL           string
	Issuer            string
	AdminClientID     string
	AdminClientSecret string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	EmailVerifications string
	EmailTemplates     string
	Sessions           string
	Groups             string
}

// Load reads all configuration from environment variables and the
// authentication options file.
func Load() (*Config, error) {
	kcBase := strings.TrimRight(getEnv("KEYCLOAK_URL", "http://localhost:8080"), "/")
	realm := getEnv("KEYCLOAK_REALM", "default")
	oidcBase := fmt.Sprintf("%s/realms/%s/protocol/openid-connect", kcBase, realm)

	cfg := &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PortalTitle:       getEnv("PORTAL_TITLE", "Science Gateway"),
		GatewayID:         getEnv("GATEWAY_ID", "default"),
		ServerEmail:       getEnv("SERVER_EMAIL", "noreply@example.com"),
		AdminEmails:       getEnvList("ADMIN_EMAILS", nil),
		LoginRedirectURL:  getEnv("LOGIN_REDIRECT_URL", "/"),
		LogoutRedirectURL: getEnv("LOGOUT_REDIRECT_URL", "/"),
		AuthOptionsFile:   getEnv("AUTH_OPTIONS_FILE", ""),

		Keycloak: Keycloak{
			BaseURL:           kcBase,
			Realm:             realm,
			ClientID:          getEnv("KEYCLOAK_CLIENT_ID", "portal"),
			ClientSecret:      getEnv("KEYCLOAK_CLIENT_SECRET", ""),
			AuthorizeURL:      getEnv("KEYCLOAK_AUTHORIZE_URL", oidcBase+"/auth"),
			TokenURL:          getEnv("KEYCLOAK_TOKEN_URL", oidcBase+"/token"),
			LogoutURL:         getEnv("KEYCLOAK_LOGOUT_URL", oidcBase+"/logout"),
			JWKSURL:           getEnv("KEYCLOAK_JWKS_URL", oidcBase+"/certs"),
			Issuer:            getEnv("KEYCLOAK_ISSUER", fmt.Sprintf("%s/realms/%s", kcBase, realm)),
			AdminClientID:     getEnv("KEYCLOAK_ADMIN_CLIENT_ID", "admin-cli"),
			AdminClientSecret: getEnv("KEYCLOAK_ADMIN_CLIENT_SECRET", ""),
		},

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			EmailVerifications: getEnv("DYNAMO_TABLE_EMAIL_VERIFICATIONS", "email_verifications"),
			EmailTemplates:     getEnv("DYNAMO_TABLE_EMAIL_TEMPLATES", "email_templates"),
			Sessions:           getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Groups:             getEnv("DYNAMO_TABLE_GROUPS", "groups"),
		},

		EmailTemplateSource: getEnv("EMAIL_TEMPLATE_SOURCE", "dynamo"),
		S3BucketName:        getEnv("S3_BUCKET_NAME", "gateway-auth"),
		S3TemplatePrefix:    getEnv("S3_TEMPLATE_PREFIX", "email-templates/"),

		SNSRegion:        getEnv("SNS_REGION", "us-east-1"),
		SNSAdminTopicARN: getEnv("SNS_ADMIN_TOPIC_ARN", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SessionBackend:      getEnv("SESSION_BACKEND", "dynamo"),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "gateway_session"),
		SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", true),
		SessionTTL:          getEnvDuration("SESSION_TTL", 14*24*time.Hour),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),

		AllowedOrigins:    getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}

	if cfg.AuthOptionsFile != "" {
		opts, err := LoadAuthOptions(cfg.AuthOptionsFile)
		if err != nil {
			return nil, err
		}
		cfg.AuthOptions = opts
	} else {
		cfg.AuthOptions = domain.AuthOptions{Password: &domain.PasswordOption{Name: cfg.PortalTitle}}
	}
	return cfg, nil
}

// LoadAuthOptions reads the login options from a YAML file:
//
//	password:
//	  name: Gateway account
//	external:
//	  - idp_alias: cilogon
//	    display_name: CILogon
func LoadAuthOptions(path string) (domain.AuthOptions, error) {
	var opts domain.AuthOptions
	b, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read auth options: %w", err)
	}
	if err := yaml.Unmarshal(b, &opts); err != nil {
		return opts, fmt.Errorf("parse auth options: %w", err)
	}
	seen := make(map[string]bool, len(opts.External))
	for _, ext := range opts.External {
		if ext.IdpAlias == "" {
			return opts, fmt.Errorf("auth options: external provider without idp_alias")
		}
		if seen[ext.IdpAlias] {
			return opts, fmt.Errorf("auth options: duplicate idp_alias %q", ext.IdpAlias)
		}
		seen[ext.IdpAlias] = true
	}
	return opts, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("24h") or a bare number of hours.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n := getEnvInt(key, -1); n >= 0 {
			return time.Duration(n) * time.Hour
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	PublicBaseURL      string
	LogLevel           string
	CORSAllowedOrigins []string

	// Studio identity used in outbound mail and calendar events.
	StudioName    string
	StudioEmail   string
	StudioPhone   string
	StudioAddress string
	EnquiryEmail  string
	Timezone      string

	// Stripe
	StripeSecretKey       string
	StripeWebhookSecret   string
	StripeSuccessURL      string
	StripeCartSuccessURL  string
	StripeCancelURL       string
	StripeCartCancelURL   string

	// SendGrid
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Microsoft Graph (calendar + fallback mail transport)
	MicrosoftTenantID     string
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftUserEmail    string

	// AWS / table store
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	BookingsTable       string

	// Redis (webhook event dedupe)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Reminder worker
	ReminderPollInterval time.Duration
	ReminderPageSize     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),

		StudioName:    getEnv("STUDIO_NAME", "Studio XV"),
		StudioEmail:   getEnv("STUDIO_EMAIL", "bookings@studioxv.co.uk"),
		StudioPhone:   getEnv("STUDIO_PHONE", "+44 (0) 20 1234 5678"),
		StudioAddress: getEnv("STUDIO_ADDRESS", "London, UK"),
		EnquiryEmail:  getEnv("ENQUIRY_EMAIL", "enquiries@studioxv.co.uk"),
		Timezone:      getEnv("STUDIO_TIMEZONE", "Europe/London"),

		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeSuccessURL:      getEnv("STRIPE_SUCCESS_URL", ""),
		StripeCartSuccessURL:  getEnv("STRIPE_CART_SUCCESS_URL", ""),
		StripeCancelURL:       getEnv("STRIPE_CANCEL_URL", ""),
		StripeCartCancelURL:   getEnv("STRIPE_CART_CANCEL_URL", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "bookings@studioxv.co.uk"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Studio XV"),

		MicrosoftTenantID:     getEnv("MICROSOFT_TENANT_ID", ""),
		MicrosoftClientID:     getEnv("MICROSOFT_CLIENT_ID", ""),
		MicrosoftClientSecret: getEnv("MICROSOFT_CLIENT_SECRET", ""),
		MicrosoftUserEmail:    getEnv("MICROSOFT_USER_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "eu-west-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BookingsTable:       getEnv("BOOKINGS_TABLE", "bookings"),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		ReminderPollInterval: getEnvAsDuration("REMINDER_POLL_INTERVAL", 15*time.Minute),
		ReminderPageSize:     getEnvAsInt("REMINDER_PAGE_SIZE", 50),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable as a slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

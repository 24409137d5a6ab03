package config

import (
	"os"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	App      AppConfig
	Product  ProductConfig
	Payment  PaymentConfig
	Esewa    EsewaConfig
	Khalti   KhaltiConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// SMTPConfig for OTP email delivery. Leave Host empty to disable sending;
// codes are logged instead (development only).
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// AppConfig holds the public base URL the payment gateways redirect back to.
type AppConfig struct {
	BaseURL string
}

// ProductConfig describes the single SKU this shop sells.
type ProductConfig struct {
	Name        string
	Description string
	AmountPaisa int64
	Currency    string
}

type PaymentConfig struct {
	IntentTTL     time.Duration
	SweepInterval time.Duration
	OTPExpiry     time.Duration
}

// EsewaConfig for the eSewa ePay v2 form gateway.
type EsewaConfig struct {
	FormURL      string
	StatusURL    string
	MerchantCode string
	SecretKey    string
}

// KhaltiConfig for the Khalti ePayment JSON API.
type KhaltiConfig struct {
	InitiateURL string
	LookupURL   string
	SecretKey   string
	PublicKey   string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         env("PORT", "8099"),
			Env:          env("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             env("DATABASE_DSN", "epay:epay@tcp(localhost:3306)/epay?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  env("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: env("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "epay",
		},
		SMTP: SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: env("SMTP_PORT", "587"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: env("SMTP_FROM", "no-reply@epay.local"),
		},
		App: AppConfig{
			BaseURL: env("BASE_URL", "http://localhost:3000"),
		},
		Product: ProductConfig{
			Name:        "Harpic",
			Description: "500 ml bottle",
			AmountPaisa: 12000, // NPR 120
			Currency:    "NPR",
		},
		Payment: PaymentConfig{
			IntentTTL:     20 * time.Minute,
			SweepInterval: time.Minute,
			OTPExpiry:     10 * time.Minute,
		},
		Esewa: EsewaConfig{
			FormURL:      env("ESEWA_PAYMENT_URL", "https://rc-epay.esewa.com.np/api/epay/main/v2/form"),
			StatusURL:    env("ESEWA_VERIFY_URL", "https://rc.esewa.com.np/api/epay/transaction/status/"),
			MerchantCode: env("ESEWA_MERCHANT_CODE", "EPAYTEST"),
			SecretKey:    env("ESEWA_SECRET_KEY", "8gBm/:&EnhH.1/q"),
		},
		Khalti: KhaltiConfig{
			InitiateURL: env("KHALTI_INITIATE_URL", "https://a.khalti.com/api/v2/epayment/initiate/"),
			LookupURL:   env("KHALTI_VERIFY_URL", "https://a.khalti.com/api/v2/epayment/lookup/"),
			SecretKey:   os.Getenv("KHALTI_SECRET_KEY"),
			PublicKey:   os.Getenv("KHALTI_PUBLIC_KEY"),
		},
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

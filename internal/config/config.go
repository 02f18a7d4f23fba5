package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const devSecret = "dev-secret-change-me"

type App struct {
	Env        string `envconfig:"APP_ENV" default:"development"`
	Port       string `envconfig:"PORT" default:"3001"`
	APIVersion string `envconfig:"API_VERSION" default:"v1"`

	// DB
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	DBHost            string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort            int           `envconfig:"DB_PORT" default:"5432"`
	DBName            string        `envconfig:"DB_NAME" default:"catalogo_productos"`
	DBUser            string        `envconfig:"DB_USER" default:"postgres"`
	DBPassword        string        `envconfig:"DB_PASSWORD" default:"postgres"`
	DBSSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns        int           `envconfig:"DB_MAX_CONNS" default:"20"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	DBConnectTimeout  time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"15s"`

	// JWT
	JWTSecret    string        `envconfig:"JWT_SECRET"`
	JWTExpiresIn time.Duration `envconfig:"JWT_EXPIRES_IN" default:"24h"`

	// Bootstrap account
	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:"admin@catalogo.com"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:"admin123"`
	AdminName     string `envconfig:"ADMIN_NOMBRE" default:"Administrador"`

	// HTTP
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	APIBaseURL  string `envconfig:"API_BASE_URL"`

	// Images
	UploadDir       string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	AccountID       string `envconfig:"ACCOUNT_ID"`
	AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
	AccessKeySecret string `envconfig:"ACCESS_KEY_SECRET"`
	BucketName      string `envconfig:"BUCKET_NAME"`
	PublicURL       string `envconfig:"PUBLIC_URL"`

	// Events
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"catalog"`

	OrphanPolicy    string `envconfig:"ORPHAN_POLICY" default:"delete"`
	WhatsAppBaseURL string `envconfig:"WHATSAPP_BASE_URL" default:"https://wa.me"`

	// Requests per window, keyed by client IP
	RateGeneral       int           `envconfig:"RATE_GENERAL" default:"100"`
	RateGeneralWindow time.Duration `envconfig:"RATE_GENERAL_WINDOW" default:"15m"`
	RateLogin         int           `envconfig:"RATE_LOGIN" default:"5"`
	RateLoginWindow   time.Duration `envconfig:"RATE_LOGIN_WINDOW" default:"15m"`
	RateContact       int           `envconfig:"RATE_CONTACT" default:"10"`
	RateContactWindow time.Duration `envconfig:"RATE_CONTACT_WINDOW" default:"1m"`
}

// LoadDotenv loads the first .env found in the working directory or its parents.
// A missing file is not an error; deployments set the environment directly.
func LoadDotenv() string {
	for _, p := range []string{".env", filepath.Join("..", ".env"), filepath.Join("..", "..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return p
		}
	}
	return ""
}

func Load() (App, error) {
	var c App
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c *App) validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("config: JWT_SECRET is required in production")
		}
		c.JWTSecret = devSecret
	}
	if c.JWTExpiresIn <= 0 {
		return fmt.Errorf("config: JWT_EXPIRES_IN must be positive, got %s", c.JWTExpiresIn)
	}
	switch c.OrphanPolicy {
	case "delete", "detach":
	default:
		return fmt.Errorf("config: ORPHAN_POLICY must be delete or detach, got %q", c.OrphanPolicy)
	}
	if c.IsProduction() && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required in production")
	}
	return nil
}

func (c App) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the DB_* parts.
func (c App) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", c.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Origins splits FRONTEND_URL into trimmed origins without trailing slashes.
func (c App) Origins() []string {
	var origins []string
	for _, p := range strings.Split(c.FrontendURL, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// BaseURL is the public URL of this API, falling back to localhost on the configured port.
func (c App) BaseURL() string {
	if c.APIBaseURL != "" {
		return strings.TrimRight(c.APIBaseURL, "/")
	}
	return "http://localhost:" + c.Port
}

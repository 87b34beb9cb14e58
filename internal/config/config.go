package config

import (
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Cases    CasesConfig    `yaml:"cases"`
	RBAC     RBACConfig     `yaml:"rbac"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig holds HTTP and gRPC listener settings.
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"        env:"MOP_HTTP_ADDR"        env-default:":8080"`
	GRPCAddr        string        `yaml:"grpc_addr"        env:"MOP_GRPC_ADDR"        env-default:":9090"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"MOP_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"MOP_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"MOP_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"MOP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"MOP_MAX_BODY_BYTES"   env-default:"1048576"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"   env:"MOP_RATE_LIMIT_RPS"   env-default:"50"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"MOP_RATE_LIMIT_BURST" env-default:"100"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"            env:"MOP_DB_DRIVER"            env-default:"memory"`
	DSN             string        `yaml:"dsn"               env:"MOP_DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"MOP_DB_MAX_OPEN_CONNS"    env-default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"MOP_DB_MAX_IDLE_CONNS"    env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"MOP_DB_CONN_MAX_LIFETIME" env-default:"1h"`
}

// AuthConfig holds token settings and the optional bootstrap administrator.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"        env:"MOP_AUTH_SECRET"`
	JWTIssuer       string        `yaml:"jwt_issuer"        env:"MOP_AUTH_ISSUER"        env-default:"mop"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"  env:"MOP_ACCESS_TOKEN_TTL"   env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"MOP_REFRESH_TOKEN_TTL"  env-default:"168h"`
	AdminEmail      string        `yaml:"admin_email"       env:"MOP_ADMIN_EMAIL"`
	AdminPassword   string        `yaml:"admin_password"    env:"MOP_ADMIN_PASSWORD"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"MOP_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"MOP_LOG_FORMAT" env-default:"json"`
}

// CasesConfig tunes the case lifecycle.
type CasesConfig struct {
	IDPrefix          string `yaml:"id_prefix"          env:"MOP_CASE_ID_PREFIX"          env-default:"MOP"`
	StatsWindowDays   int    `yaml:"stats_window_days"  env:"MOP_STATS_WINDOW_DAYS"       env-default:"30"`
	MaxIDAttempts     int    `yaml:"max_id_attempts"    env:"MOP_CASE_MAX_ID_ATTEMPTS"    env-default:"5"`
	StrictTransitions bool   `yaml:"strict_transitions" env:"MOP_CASE_STRICT_TRANSITIONS" env-default:"false"`
}

// StatsWindow returns the statistics window as a duration.
func (c CasesConfig) StatsWindow() time.Duration {
	return time.Duration(c.StatsWindowDays) * 24 * time.Hour
}

// RBACConfig names the distinguished role and permission ids.
type RBACConfig struct {
	AdminRoleID          string `yaml:"admin_role_id"          env:"MOP_RBAC_ADMIN_ROLE"    env-default:"admin"`
	WildcardPermissionID string `yaml:"wildcard_permission_id" env:"MOP_RBAC_WILDCARD"      env-default:"all_modules"`
	DefaultRoleID        string `yaml:"default_role_id"        env:"MOP_RBAC_DEFAULT_ROLE"  env-default:"onboarding_officer"`
	GuardDeletes         bool   `yaml:"guard_deletes"          env:"MOP_RBAC_GUARD_DELETES" env-default:"false"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"MOP_CORS_ALLOWED_ORIGINS" env-default:"*"`
}

// Origins splits AllowedOrigins on commas.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

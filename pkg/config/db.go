package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

type DBConfig struct {
	DSN    string `envconfig:"ORDERS_DB_DSN"`
	Driver string `envconfig:"ORDERS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERS_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERS_DB_USER"`
	LegacyPassword string `envconfig:"ORDERS_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERS_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"ORDERS_DB_SLOW_QUERY" default:"500ms"`
}

// resolveDSN returns DSN as is, or assembles a postgres URL from the
// ORDERS_DB_HOST/USER/NAME family.
func (db DBConfig) resolveDSN() (string, error) {
	if db.DSN != "" {
		return db.DSN, nil
	}

	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.LegacyHost, EnvDBUser: db.LegacyUser, EnvDBName: db.LegacyName} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.LegacyUser),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		u.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	return u.String(), nil
}

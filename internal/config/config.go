package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"erp-ledger/internal/core"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config represents the ledger.yaml configuration after env overrides.
type Config struct {
	Store    StoreConfig       `yaml:"store"`
	Server   ServerConfig      `yaml:"server"`
	Log      LogConfig         `yaml:"log"`
	Accounts map[string]string `yaml:"accounts,omitempty"` // role → account code
	Approval ApprovalConfig    `yaml:"approval"`
	// ChartFile replaces the built-in chart of accounts used by seeding.
	ChartFile string `yaml:"chart_file,omitempty"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url,omitempty"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ApprovalConfig lists the roles allowed to move an invoice into each status.
type ApprovalConfig struct {
	Approve []string `yaml:"approve"`
	Post    []string `yaml:"post"`
	Reopen  []string `yaml:"reopen"`
}

// ChartAccount is one row of a chart-of-accounts file.
type ChartAccount struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Store:  StoreConfig{Driver: DriverPostgres},
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info"},
		Approval: ApprovalConfig{
			Approve: []string{"admin", "accountant"},
			Post:    []string{"admin", "accountant"},
			Reopen:  []string{"admin"},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. An empty path falls back to LEDGER_CONFIG; with
// neither set no file is read. A missing .env is ignored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("LEDGER_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_DEVELOPMENT: %w", err)
		}
		c.Log.Development = dev
	}
	return nil
}

// Validate checks that the selected store driver has what it needs.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	for role := range c.Accounts {
		if _, ok := core.DefaultAccountMap()[core.AccountRole(role)]; !ok {
			return fmt.Errorf("unknown account role %q", role)
		}
	}
	return nil
}

// AccountMap returns the default role mapping with the configured overrides applied.
func (c *Config) AccountMap() core.AccountMap {
	return core.DefaultAccountMap().Merge(c.Accounts)
}

// TransitionPolicy turns the approval role lists into a core policy.
func (c *Config) TransitionPolicy() core.TransitionPolicy {
	return core.RolePolicy(map[core.InvoiceStatus][]string{
		core.InvoiceStatusApproved: c.Approval.Approve,
		core.InvoiceStatusPosted:   c.Approval.Post,
		core.InvoiceStatusDraft:    c.Approval.Reopen,
	})
}

// Chart returns the chart of accounts used for seeding: the ChartFile when set,
// otherwise the built-in default.
func (c *Config) Chart() ([]core.Account, error) {
	if c.ChartFile == "" {
		return core.DefaultChart(), nil
	}
	return LoadChart(c.ChartFile)
}

// LoadChart reads a YAML list of accounts. Every account is seeded as a system account.
func LoadChart(path string) ([]core.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chart: %w", err)
	}
	var rows []ChartAccount
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing chart: %w", err)
	}

	out := make([]core.Account, 0, len(rows))
	for i, r := range rows {
		typ := core.AccountType(strings.ToLower(strings.TrimSpace(r.Type)))
		if !typ.Valid() {
			return nil, fmt.Errorf("chart row %d (%s): unknown account type %q", i+1, r.Code, r.Type)
		}
		out = append(out, core.Account{Code: r.Code, Name: r.Name, Type: typ, IsSystem: true})
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"casework/internal/domain"
)

// Config models casework.yml.
type Config struct {
	Organization struct {
		Name string `yaml:"name" json:"name"`
	} `yaml:"organization" json:"organization"`
	Registration struct {
		DefaultStatus  string `yaml:"default_status" json:"default_status"`
		DefaultUrgency string `yaml:"default_urgency" json:"default_urgency"`
		SuccessMessage string `yaml:"success_message" json:"success_message"`
		FailureMessage string `yaml:"failure_message" json:"failure_message"`
		SessionTTL     string `yaml:"session_ttl" json:"session_ttl"`
	} `yaml:"registration" json:"registration"`
	Report struct {
		Locale         string `yaml:"locale" json:"locale"`
		CurrencySymbol string `yaml:"currency_symbol" json:"currency_symbol"`
		DateLayout     string `yaml:"date_layout" json:"date_layout"`
	} `yaml:"report" json:"report"`
	RBAC struct {
		Roles map[string]RBACRole `yaml:"roles" json:"roles"`
	} `yaml:"rbac" json:"rbac"`
}

type RBACRole struct {
	Description string   `yaml:"description" json:"description"`
	Permissions []string `yaml:"permissions" json:"permissions"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Organization.Name == "" {
		return fmt.Errorf("config.organization.name is required")
	}
	if !domain.Contains(domain.FamilyStatuses, c.Registration.DefaultStatus) {
		return fmt.Errorf("config.registration.default_status %q is not a family status", c.Registration.DefaultStatus)
	}
	if !domain.Contains(domain.UrgencyLevels, c.Registration.DefaultUrgency) {
		return fmt.Errorf("config.registration.default_urgency %q is not an urgency level", c.Registration.DefaultUrgency)
	}
	if c.Registration.SuccessMessage == "" || c.Registration.FailureMessage == "" {
		return fmt.Errorf("config.registration messages are required")
	}
	if c.Registration.SessionTTL != "" {
		if _, err := time.ParseDuration(c.Registration.SessionTTL); err != nil {
			return fmt.Errorf("config.registration.session_ttl invalid: %w", err)
		}
	}
	if c.Report.CurrencySymbol == "" {
		return fmt.Errorf("config.report.currency_symbol is required")
	}
	if c.Report.DateLayout == "" {
		return fmt.Errorf("config.report.date_layout is required")
	}
	if len(c.RBAC.Roles) == 0 {
		return fmt.Errorf("config.rbac.roles is required")
	}
	if _, ok := c.RBAC.Roles["ADMIN"]; !ok {
		return fmt.Errorf("config.rbac.roles must include ADMIN")
	}
	for roleID, role := range c.RBAC.Roles {
		if roleID == "" {
			return fmt.Errorf("config.rbac.roles contains empty role id")
		}
		for _, perm := range role.Permissions {
			if perm == "" {
				return fmt.Errorf("role %s has empty permission id", roleID)
			}
		}
	}
	return nil
}

// SessionTTL returns the wizard session lifetime, defaulting to two hours.
func (c *Config) SessionTTL() time.Duration {
	if d, err := time.ParseDuration(c.Registration.SessionTTL); err == nil && d > 0 {
		return d
	}
	return 2 * time.Hour
}

// RolePermissions lists the permissions granted to role.
func (c *Config) RolePermissions(role string) []string {
	if c == nil {
		return nil
	}
	return c.RBAC.Roles[role].Permissions
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "casework.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing sections
// keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Permission identifiers checked by the API.
const (
	PermFamiliesRead   = "families.read"
	PermFamiliesWrite  = "families.write"
	PermVisitsRead     = "visits.read"
	PermVisitsWrite    = "visits.write"
	PermTasksRead      = "tasks.read"
	PermTasksWrite     = "tasks.write"
	PermReportsExport  = "reports.export"
	PermUsersRead      = "users.read"
	PermUsersWrite     = "users.write"
	PermEventsRead     = "events.read"
	PermDashboardRead  = "dashboard.read"
	PermAttendanceLog  = "attendance.write"
	PermFamiliesAssign = "families.assign"
)

const defaultTemplate = `organization:
  name: "Igreja Esperança - Ministério Compartilhar Esperança"

registration:
  default_status: PENDING
  default_urgency: LOW
  success_message: "Cadastro realizado com sucesso! Sua família foi registrada e receberá acompanhamento em breve."
  failure_message: "Erro ao salvar dados da família. Tente novamente."
  session_ttl: 2h

report:
  locale: pt-BR
  currency_symbol: "R$"
  date_layout: "02/01/2006"

rbac:
  roles:
    ADMIN:
      description: "Full access"
      permissions: [families.read, families.write, families.assign, attendance.write, visits.read, visits.write, tasks.read, tasks.write, reports.export, users.read, users.write, events.read, dashboard.read]
    COORDINATOR:
      description: "Runs the ministry day to day"
      permissions: [families.read, families.write, families.assign, attendance.write, visits.read, visits.write, tasks.read, tasks.write, reports.export, users.read, dashboard.read]
    VOLUNTEER:
      description: "Visits families and logs attendance"
      permissions: [families.read, attendance.write, visits.read, visits.write, tasks.read, tasks.write, dashboard.read]
`

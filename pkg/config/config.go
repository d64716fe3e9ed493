package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

// Environment identifies the provider environment a configuration targets.
type Environment string

const (
	Test       Environment = "test"
	Acceptance Environment = "acc"
	Production Environment = "prod"
)

// ParseEnvironment maps a configuration value onto an Environment.
func ParseEnvironment(s string) (Environment, error) {
	switch e := Environment(s); e {
	case Test, Acceptance, Production:
		return e, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
}

// BaseURL returns the default provider endpoint for the environment.
func (e Environment) BaseURL() string {
	switch e {
	case Test:
		return "https://test.viamijnbank.net"
	case Acceptance:
		return "https://acc.viamijnbank.net"
	default:
		return "https://viamijnbank.net"
	}
}

// ReturnStatus is the outcome the test environment is asked to simulate.
type ReturnStatus string

const (
	ReturnNone      ReturnStatus = "none"
	ReturnSuccess   ReturnStatus = "success"
	ReturnCancelled ReturnStatus = "cancelled"
	ReturnExpired   ReturnStatus = "expired"
	ReturnFailure   ReturnStatus = "failure"
	ReturnOpen      ReturnStatus = "open"
	ReturnPending   ReturnStatus = "pending"
)

// ReturnStatuses lists every accepted ReturnStatus.
func ReturnStatuses() []ReturnStatus {
	return []ReturnStatus{ReturnNone, ReturnSuccess, ReturnCancelled, ReturnExpired, ReturnFailure, ReturnOpen, ReturnPending}
}

func (s ReturnStatus) valid() bool {
	for _, r := range ReturnStatuses() {
		if s == r {
			return true
		}
	}
	return false
}

// LocalInstrumentCode selects the SEPA direct debit scheme for mandates.
type LocalInstrumentCode string

const (
	InstrumentCORE LocalInstrumentCode = "CORE"
	InstrumentB2B  LocalInstrumentCode = "B2B"
)

const (
	// StaticTestMerchantID is the merchant every test-environment request uses.
	StaticTestMerchantID = "0020000387"
	// MerchantSubID is fixed for all requests.
	MerchantSubID = "0"

	DefaultTimeout = 30 * time.Second
)

// Input is the unvalidated configuration as read from a file or set in code.
type Input struct {
	Environment           string        `yaml:"environment" validate:"required,oneof=test acc prod"`
	SenderID              string        `yaml:"senderID" validate:"required,startswith=S,alphanum,min=2"`
	BrandID               string        `yaml:"brandID" validate:"required"`
	IdentityBrandID       string        `yaml:"IDINBrandID"`
	TestAccessToken       string        `yaml:"test_accessToken"`
	ProductionAccessToken string        `yaml:"production_accessToken"`
	MerchantID            string        `yaml:"merchantID"`
	MerchantReturnURLBase string        `yaml:"merchantReturnURLBase" validate:"omitempty,url"`
	EMandateReason        string        `yaml:"eMandateReason"`
	LocalInstrumentCode   string        `yaml:"localInstrumentCode"`
	ExpectedReturnStatus  string        `yaml:"expectedReturnStatus"`
	BaseURL               string        `yaml:"baseURL" validate:"omitempty,url"`
	Timeout               time.Duration `yaml:"timeout"`
}

// Config is a validated integration configuration. It is never mutated after
// Build returns it and may be shared between goroutines.
type Config struct {
	environment           Environment
	senderID              string
	brandID               string
	identityBrandID       string
	accessToken           string
	merchantID            string
	merchantReturnURLBase string
	eMandateReason        string
	localInstrumentCode   LocalInstrumentCode
	expectedReturnStatus  ReturnStatus
	baseURL               string
	timeout               time.Duration
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateTokens, Input{})
	return v
}

// validateTokens enforces the environment dependent credential rules.
// Acceptance shares the production token.
func validateTokens(sl validator.StructLevel) {
	in := sl.Current().Interface().(Input)
	switch Environment(in.Environment) {
	case Test:
		if in.TestAccessToken == "" {
			sl.ReportError(in.TestAccessToken, "test_accessToken", "TestAccessToken", "required_in_env", in.Environment)
		}
	case Production, Acceptance:
		if in.ProductionAccessToken == "" {
			sl.ReportError(in.ProductionAccessToken, "production_accessToken", "ProductionAccessToken", "required_in_env", in.Environment)
		}
	}
}

// Build validates in and returns the resulting Config. On failure the error
// is a ValidationErrors value listing every violated rule.
func Build(in Input) (*Config, error) {
	in.Environment = strings.TrimSpace(in.Environment)
	if err := validate.Struct(in); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, fmt.Errorf("validating configuration: %w", err)
		}
		return nil, newValidationErrors(fieldErrs)
	}

	env := Environment(in.Environment)
	cfg := &Config{
		environment:           env,
		senderID:              in.SenderID,
		brandID:               in.BrandID,
		identityBrandID:       in.IdentityBrandID,
		merchantID:            in.MerchantID,
		merchantReturnURLBase: in.MerchantReturnURLBase,
		eMandateReason:        in.EMandateReason,
		localInstrumentCode:   InstrumentCORE,
		baseURL:               strings.TrimRight(in.BaseURL, "/"),
		timeout:               in.Timeout,
	}

	switch env {
	case Test:
		cfg.accessToken = in.TestAccessToken
		cfg.merchantID = StaticTestMerchantID
		if in.ExpectedReturnStatus != "" {
			cfg.expectedReturnStatus = ReturnStatus(in.ExpectedReturnStatus)
			if !cfg.expectedReturnStatus.valid() {
				cfg.expectedReturnStatus = ReturnSuccess
			}
		}
	default:
		cfg.accessToken = in.ProductionAccessToken
	}

	if lic := LocalInstrumentCode(in.LocalInstrumentCode); lic == InstrumentB2B {
		cfg.localInstrumentCode = lic
	}
	if cfg.baseURL == "" {
		cfg.baseURL = env.BaseURL()
	}
	if cfg.timeout <= 0 {
		cfg.timeout = DefaultTimeout
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration, expands environment variables and
// builds a Config from it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var in Input
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &in); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return Build(in)
}

func (c *Config) Environment() Environment { return c.environment }
func (c *Config) SenderID() string         { return c.senderID }
func (c *Config) BrandID() string          { return c.brandID }

// IdentityBrandID returns the IDIN brand override, or the regular brand ID
// when none is configured.
func (c *Config) IdentityBrandID() string {
	if c.identityBrandID != "" {
		return c.identityBrandID
	}
	return c.brandID
}

func (c *Config) AccessToken() string                      { return c.accessToken }
func (c *Config) MerchantID() string                       { return c.merchantID }
func (c *Config) MerchantSubID() string                    { return MerchantSubID }
func (c *Config) MerchantReturnURLBase() string            { return c.merchantReturnURLBase }
func (c *Config) EMandateReason() string                   { return c.eMandateReason }
func (c *Config) LocalInstrumentCode() LocalInstrumentCode { return c.localInstrumentCode }
func (c *Config) BaseURL() string                          { return c.baseURL }
func (c *Config) Timeout() time.Duration                   { return c.timeout }

// ExpectedReturnStatus reports the simulated outcome requested from the test
// environment. It is never set outside Test.
func (c *Config) ExpectedReturnStatus() (ReturnStatus, bool) {
	return c.expectedReturnStatus, c.expectedReturnStatus != ""
}

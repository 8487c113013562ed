package config

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/haukened/rr-nbt/internal/nbt/domain"
	"github.com/haukened/rr-nbt/internal/nbt/repos/targets"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Bind is the local address queries are sent from. Port 0 picks an
	// ephemeral port per query.
	Bind string `koanf:"bind" validate:"required,bind_addr"`

	// Port is the remote NetBIOS Name Service port.
	Port int `koanf:"port" validate:"required,gte=1,lt=65536"`

	// Timeout is how long to wait for each reply.
	Timeout time.Duration `koanf:"timeout" validate:"required,gt=0"`

	// Workers bounds concurrent queries during a sweep.
	Workers int `koanf:"workers" validate:"required,gte=1,lte=1024"`

	// MaxNames caps the name records kept per reply.
	MaxNames int `koanf:"max_names" validate:"required,gte=1,lte=255"`

	// Scope is the NetBIOS scope appended to the queried name.
	Scope string `koanf:"scope" validate:"omitempty,nbt_scope"`

	// Targets lists addresses, CIDR blocks or ranges to scan.
	Targets []string `koanf:"targets" validate:"omitempty,dive,target"`

	// TargetsFile is a YAML, JSON, TOML or plain list of targets.
	TargetsFile string `koanf:"targets_file" validate:"omitempty,file"`

	// Broadcast is an IPv4 broadcast address to sweep instead of unicast targets.
	Broadcast string `koanf:"broadcast" validate:"omitempty,ipv4"`

	// CacheSize and CacheTTL size the host cache; either at 0 disables it.
	CacheSize int           `koanf:"cache_size" validate:"gte=0"`
	CacheTTL  time.Duration `koanf:"cache_ttl" validate:"gte=0"`

	// DBPath is the bbolt file replies are persisted to; empty disables it.
	DBPath string `koanf:"db_path"`

	// BloomCapacity and BloomFPRate size the duplicate-reply filter used
	// during broadcast sweeps.
	BloomCapacity uint64  `koanf:"bloom_capacity" validate:"required,gte=1"`
	BloomFPRate   float64 `koanf:"bloom_fp_rate" validate:"required,gt=0,lt=1"`
}

// DEFAULT_APP_CONFIG defines the default scanner settings.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:           "prod",
	LogLevel:      "info",
	Bind:          "0.0.0.0:0",
	Port:          137,
	Timeout:       2 * time.Second,
	Workers:       32,
	MaxNames:      domain.DefaultMaxNames,
	CacheSize:     4096,
	CacheTTL:      5 * time.Minute,
	BloomCapacity: 65536,
	BloomFPRate:   0.01,
}

// validBindAddr accepts "host:port" where host is empty or an IP and port
// is 0-65535.
func validBindAddr(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	if host != "" && net.ParseIP(host) == nil {
		return false
	}
	_, err = strconv.ParseUint(port, 10, 16)
	return err == nil
}

// validScope accepts a dotted NetBIOS scope that fits in an encoded name.
func validScope(fl validator.FieldLevel) bool {
	return domain.ValidateScope(fl.Field().String()) == nil
}

// validTarget accepts anything the target expander understands.
func validTarget(fl validator.FieldLevel) bool {
	_, err := targets.Expand(fl.Field().String())
	return err == nil
}

// envLoader loads environment variables with the prefix "NBT_".
// Values containing spaces or commas become lists.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "NBT_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "NBT_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

var registerValidation = func(v *validator.Validate) error {
	for tag, fn := range map[string]validator.Func{
		"bind_addr": validBindAddr,
		"nbt_scope": validScope,
		"target":    validTarget,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

// BroadcastAddr returns the parsed broadcast address, or the zero Addr
// when none is configured.
func (c *AppConfig) BroadcastAddr() netip.Addr {
	a, err := netip.ParseAddr(c.Broadcast)
	if err != nil {
		return netip.Addr{}
	}
	return a
}

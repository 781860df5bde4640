package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/PolarWolf314/knox/internal/secrets"
	"github.com/PolarWolf314/knox/internal/workflows"

	"github.com/alecthomas/units"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore, e.g. KNOX_KDF__MEMORY=128MiB.
const EnvPrefix = "KNOX_"

// Settings is the merged engine configuration.
// Order of precedence (lowest → highest): Defaults → config file → Environment.
type Settings struct {
	Algorithm       string           `koanf:"algorithm" validate:"required,algorithm"`
	KDF             KDFSettings      `koanf:"kdf"`
	ChunkSize       units.Base2Bytes `koanf:"chunk_size" validate:"gt=0,lte=67108864"`
	StreamThreshold units.Base2Bytes `koanf:"stream_threshold" validate:"gte=0,lte=67108864"`
	ShredPasses     int              `koanf:"shred_passes" validate:"min=1,max=35"`
	Workers         int              `koanf:"workers" validate:"min=1,max=64"`

	// VaultRoots are searched by "vault load" in addition to the registry.
	VaultRoots []string `koanf:"vault_roots"`

	AuditLog string `koanf:"audit_log" validate:"required"`
	Registry string `koanf:"registry" validate:"required"`
}

// KDFSettings selects the key derivation for new containers.
type KDFSettings struct {
	Algorithm   string           `koanf:"algorithm" validate:"required,kdf"`
	Memory      units.Base2Bytes `koanf:"memory" validate:"gte=0,lte=4294967296"`
	Iterations  uint32           `koanf:"iterations" validate:"min=1"`
	Parallelism uint8            `koanf:"parallelism" validate:"min=1"`
}

// ConfigDir returns the directory holding config.toml.
func ConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "knox")
	}
	return filepath.Join(dir, "knox")
}

// DataDir returns the directory holding the audit log and vault registry.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "knox")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(ConfigDir(), "data")
	}
	return filepath.Join(home, ".local", "share", "knox")
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Defaults returns the settings used when nothing is overridden.
func Defaults() Settings {
	engine := workflows.DefaultConfig()
	dataDir := DataDir()
	return Settings{
		Algorithm: engine.Algorithm.String(),
		KDF: KDFSettings{
			Algorithm:   engine.KDF.Algorithm.String(),
			Memory:      units.Base2Bytes(engine.KDF.MemoryKiB) * units.KiB,
			Iterations:  engine.KDF.Iterations,
			Parallelism: engine.KDF.Parallelism,
		},
		ChunkSize:       units.Base2Bytes(engine.ChunkSize),
		StreamThreshold: units.Base2Bytes(engine.StreamThreshold),
		ShredPasses:     engine.ShredPasses,
		Workers:         engine.Workers,
		VaultRoots:      []string{},
		AuditLog:        filepath.Join(dataDir, "audit.jsonl"),
		Registry:        filepath.Join(dataDir, "registry.toml"),
	}
}

// defaultLoader loads Defaults() into k. Swappable in tests.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(Defaults(), "koanf"), nil)
}

// fileLoader overlays the TOML file at path. Swappable in tests.
var fileLoader = func(k *koanf.Koanf, path string) error {
	return k.Load(tomlFile{path: path}, nil)
}

// envLoader overlays KNOX_* variables. Swappable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			key = strings.ReplaceAll(key, "__", ".")
			if key == "vault_roots" {
				return key, filepath.SplitList(value)
			}
			return key, value
		},
	}), nil)
}

// registerValidators adds the knox-specific validation tags.
var registerValidators = func(v *validator.Validate) error {
	if err := v.RegisterValidation("algorithm", func(fl validator.FieldLevel) bool {
		alg, err := secrets.ParseAlgorithm(fl.Field().String())
		return err == nil && alg.Supported()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("kdf", func(fl validator.FieldLevel) bool {
		_, err := secrets.ParseKDF(fl.Field().String())
		return err == nil
	})
}

// sizeHook decodes strings such as "64MiB" into units.Base2Bytes.
func sizeHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(units.Base2Bytes(0))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != target || f.Kind() != reflect.String {
			return data, nil
		}
		s := strings.TrimSpace(data.(string))
		if s == "" {
			return units.Base2Bytes(0), nil
		}
		n, err := units.ParseBase2Bytes(s)
		if err != nil {
			return nil, fmt.Errorf("parse size %q: %w", s, err)
		}
		return n, nil
	}
}

// Load merges defaults, the TOML file at path (ConfigPath() if empty; a
// missing file is ignored) and the environment, then validates the result.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = ConfigPath()
	}

	k := koanf.New(".")
	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if err := fileLoader(k, path); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var s Settings
	err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.ComposeDecodeHookFunc(sizeHook(), mapstructure.StringToSliceHookFunc(",")),
			Result:           &s,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	v := validator.New()
	if err := registerValidators(v); err != nil {
		return nil, fmt.Errorf("registering validators: %w", err)
	}
	if err := v.Struct(&s); err != nil {
		return nil, err
	}
	if _, err := s.EngineConfig(); err != nil {
		return nil, err
	}
	return &s, nil
}

// EngineConfig converts the settings into the configuration of a
// workflows.Service.
func (s Settings) EngineConfig() (workflows.Config, error) {
	alg, err := secrets.ParseAlgorithm(s.Algorithm)
	if err != nil {
		return workflows.Config{}, err
	}
	kdf, err := secrets.ParseKDF(s.KDF.Algorithm)
	if err != nil {
		return workflows.Config{}, err
	}

	cfg := workflows.Config{
		Algorithm: alg,
		KDF: secrets.KDFParams{
			Algorithm:   kdf,
			MemoryKiB:   uint32(s.KDF.Memory / units.KiB),
			Iterations:  s.KDF.Iterations,
			Parallelism: s.KDF.Parallelism,
		},
		ChunkSize:       uint32(s.ChunkSize),
		StreamThreshold: int64(s.StreamThreshold),
		ShredPasses:     s.ShredPasses,
		Workers:         s.Workers,
	}
	if kdf == secrets.KDFPBKDF2SHA256 {
		cfg.KDF.MemoryKiB = 0
		cfg.KDF.Parallelism = 0
	}
	return cfg, cfg.Validate()
}

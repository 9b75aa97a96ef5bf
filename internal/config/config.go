package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration and every game-balance constant.
// Durations are stored as milliseconds so the file mirrors the persisted state.
type Config struct {
	// MaxCapsules caps the capsule balance (passive regeneration and shop stop here).
	MaxCapsules int `json:"max_capsules"`

	// InitialCapsules is the balance of a brand-new game.
	InitialCapsules int `json:"initial_capsules"`

	// CapsuleRegenMs is the passive regeneration interval for one capsule.
	CapsuleRegenMs int64 `json:"capsule_regen_ms"`

	// BreedingCooldownMs is the engine-wide cooldown applied to both parents.
	BreedingCooldownMs int64 `json:"breeding_cooldown_ms"`

	// HatchMinMs and HatchMaxMs bound the randomized hatch duration of a new egg.
	HatchMinMs int64 `json:"hatch_min_ms"`
	HatchMaxMs int64 `json:"hatch_max_ms"`

	// HatchFloorMs is the lowest hatch duration warm-ups can reach.
	HatchFloorMs int64 `json:"hatch_floor_ms"`

	// WarmUpStepMs is subtracted from the hatch duration on every warm-up.
	WarmUpStepMs int64 `json:"warm_up_step_ms"`

	// CapsuleCost and RareVariantCost are shop prices in tokens.
	CapsuleCost     int64 `json:"capsule_cost"`
	RareVariantCost int64 `json:"rare_variant_cost"`

	// CreatureOdds is the probability that a capsule yields a creature rather than an egg.
	CreatureOdds float64 `json:"creature_odds"`

	// RareVariantOdds is the probability that a drawn creature is a rare variant.
	RareVariantOdds float64 `json:"rare_variant_odds"`

	// CatalogURL is the base URL of the REST catalog.
	CatalogURL string `json:"catalog_url,omitempty"`

	// CatalogFile points to a YAML catalog used instead of CatalogURL (offline play).
	CatalogFile string `json:"catalog_file,omitempty"`

	// CatalogMaxID is the highest creature ID random draws may pick (IDs start at 1).
	CatalogMaxID int `json:"catalog_max_id"`

	// CatalogTimeoutMs bounds a single catalog request.
	CatalogTimeoutMs int64 `json:"catalog_timeout_ms"`

	// Timer intervals.
	ProgressTickMs  int64 `json:"progress_tick_ms"`
	AutoSaveMs      int64 `json:"auto_save_ms"`
	CooldownSweepMs int64 `json:"cooldown_sweep_ms"`
	RegenCheckMs    int64 `json:"regen_check_ms"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// WebBind and WebPort configure `critter serve`.
	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`

	// AllowedPaths lists extra directories that export/import may use.
	// Paths outside ~/.critter/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the directory restriction for export/import.
	// Symlink checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "game", "creature", "egg", "capsule", "shop", "photo".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxCapsules:        5,
		InitialCapsules:    3,
		CapsuleRegenMs:     45 * 60 * 1000,
		BreedingCooldownMs: 30 * 60 * 1000,
		HatchMinMs:         60 * 1000,
		HatchMaxMs:         180 * 1000,
		HatchFloorMs:       30 * 1000,
		WarmUpStepMs:       5 * 1000,
		CapsuleCost:        10,
		RareVariantCost:    1000,
		CreatureOdds:       0.7,
		RareVariantOdds:    1.0 / 4096,
		CatalogURL:         "https://pokeapi.co/api/v2",
		CatalogMaxID:       1025,
		CatalogTimeoutMs:   10 * 1000,
		ProgressTickMs:     1000,
		AutoSaveMs:         30 * 1000,
		CooldownSweepMs:    5 * 1000,
		RegenCheckMs:       60 * 1000,
		WebBind:            "127.0.0.1",
		WebPort:            8420,
	}
}

// Duration helpers.

func (c *Config) CapsuleRegen() time.Duration     { return ms(c.CapsuleRegenMs) }
func (c *Config) BreedingCooldown() time.Duration { return ms(c.BreedingCooldownMs) }
func (c *Config) CatalogTimeout() time.Duration   { return ms(c.CatalogTimeoutMs) }
func (c *Config) ProgressTick() time.Duration     { return ms(c.ProgressTickMs) }
func (c *Config) AutoSave() time.Duration         { return ms(c.AutoSaveMs) }
func (c *Config) CooldownSweep() time.Duration    { return ms(c.CooldownSweepMs) }
func (c *Config) RegenCheck() time.Duration       { return ms(c.RegenCheckMs) }

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Validate rejects settings the engine cannot honour.
func (c *Config) Validate() error {
	var problems []string
	if c.MaxCapsules <= 0 {
		problems = append(problems, "max_capsules must be positive")
	}
	if c.InitialCapsules < 0 || c.InitialCapsules > c.MaxCapsules {
		problems = append(problems, "initial_capsules must be within [0, max_capsules]")
	}
	if c.CapsuleRegenMs <= 0 || c.BreedingCooldownMs <= 0 {
		problems = append(problems, "capsule_regen_ms and breeding_cooldown_ms must be positive")
	}
	if c.HatchMinMs <= 0 || c.HatchMaxMs < c.HatchMinMs {
		problems = append(problems, "hatch range must satisfy 0 < hatch_min_ms <= hatch_max_ms")
	}
	if c.HatchFloorMs <= 0 || c.HatchFloorMs > c.HatchMinMs {
		problems = append(problems, "hatch_floor_ms must be within (0, hatch_min_ms]")
	}
	if c.WarmUpStepMs <= 0 {
		problems = append(problems, "warm_up_step_ms must be positive")
	}
	if c.CreatureOdds < 0 || c.CreatureOdds > 1 || c.RareVariantOdds < 0 || c.RareVariantOdds > 1 {
		problems = append(problems, "odds must be within [0, 1]")
	}
	if c.CatalogMaxID <= 0 {
		problems = append(problems, "catalog_max_id must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.critter.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithLocal loads the global config (~/.critter) and overlays the nearest
// .critter/config.json found by walking upward from startDir.
// Local settings win for scalars; arrays are merged.
func LoadWithLocal(globalDir, startDir string) (*Config, error) {
	globalCfg, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	localCfg := &Config{}
	if localPath := FindLocalConfig(startDir); localPath != "" {
		localCfg, err = loadFileRaw(localPath)
		if err != nil {
			return nil, err
		}
	}

	merged := Merge(globalCfg, localCfg)
	return Merge(DefaultConfig(), merged), nil
}

// FindLocalConfig walks upward from startDir to find the nearest .critter/config.json.
// Returns "" if none is found.
func FindLocalConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".critter", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		MaxCapsules:        pick(overlay.MaxCapsules, base.MaxCapsules),
		InitialCapsules:    pick(overlay.InitialCapsules, base.InitialCapsules),
		CapsuleRegenMs:     pick(overlay.CapsuleRegenMs, base.CapsuleRegenMs),
		BreedingCooldownMs: pick(overlay.BreedingCooldownMs, base.BreedingCooldownMs),
		HatchMinMs:         pick(overlay.HatchMinMs, base.HatchMinMs),
		HatchMaxMs:         pick(overlay.HatchMaxMs, base.HatchMaxMs),
		HatchFloorMs:       pick(overlay.HatchFloorMs, base.HatchFloorMs),
		WarmUpStepMs:       pick(overlay.WarmUpStepMs, base.WarmUpStepMs),
		CapsuleCost:        pick(overlay.CapsuleCost, base.CapsuleCost),
		RareVariantCost:    pick(overlay.RareVariantCost, base.RareVariantCost),
		CreatureOdds:       pick(overlay.CreatureOdds, base.CreatureOdds),
		RareVariantOdds:    pick(overlay.RareVariantOdds, base.RareVariantOdds),
		CatalogURL:         pick(overlay.CatalogURL, base.CatalogURL),
		CatalogFile:        pick(overlay.CatalogFile, base.CatalogFile),
		CatalogMaxID:       pick(overlay.CatalogMaxID, base.CatalogMaxID),
		CatalogTimeoutMs:   pick(overlay.CatalogTimeoutMs, base.CatalogTimeoutMs),
		ProgressTickMs:     pick(overlay.ProgressTickMs, base.ProgressTickMs),
		AutoSaveMs:         pick(overlay.AutoSaveMs, base.AutoSaveMs),
		CooldownSweepMs:    pick(overlay.CooldownSweepMs, base.CooldownSweepMs),
		RegenCheckMs:       pick(overlay.RegenCheckMs, base.RegenCheckMs),
		DBMaxOpenConns:     pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:     pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		WebBind:            pick(overlay.WebBind, base.WebBind),
		WebPort:            pick(overlay.WebPort, base.WebPort),
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// pick returns overlay if it is non-zero, else base.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

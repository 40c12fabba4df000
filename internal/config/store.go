package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// DefaultConfigPath is where the config file is written when none was loaded.
const DefaultConfigPath = "$HOME/.config/tally/config.yaml"

// Source provides the current settings snapshot.
type Source interface {
	Settings() Settings
}

// SetDefaults registers the scalar and list defaults with v. Keyword sets are filled
// in after decoding because viper cannot merge lists of records.
func SetDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("autotrack.enabled", d.AutoTrack.Enabled)
	v.SetDefault("autotrack.refund_monitor", d.AutoTrack.RefundMonitor)
	v.SetDefault("autotrack.assets_enabled", d.AutoTrack.AssetsEnabled)
	v.SetDefault("autotrack.auto_asset", d.AutoTrack.AutoAsset)
	v.SetDefault("autotrack.default_asset_id", d.AutoTrack.DefaultAssetID)
	v.SetDefault("autotrack.debounce_ms", d.AutoTrack.DebounceMS)
	v.SetDefault("autotrack.dedup_window_ms", d.AutoTrack.DedupWindowMS)
	v.SetDefault("autotrack.cooldown_ms", d.AutoTrack.CooldownMS)
	v.SetDefault("currency.default", d.Currency.Default)
	v.SetDefault("notification.apps", d.Notification.Apps)
	v.SetDefault("categories.expense", d.Categories.Expense)
	v.SetDefault("categories.income", d.Categories.Income)
	v.SetDefault("feed.buffer", d.Feed.Buffer)
}

// Store holds the decoded settings and keeps them in sync with the config file.
type Store struct {
	v        *viper.Viper
	settings Settings
	mu       sync.RWMutex
}

// NewStore decodes the settings currently loaded into v.
func NewStore(v *viper.Viper) (*Store, error) {
	SetDefaults(v)
	s := &Store{v: v}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.clone()
}

// Reload decodes the settings from viper again. Invalid settings are rejected and the
// previous snapshot is kept.
func (s *Store) Reload() error {
	var next Settings
	if err := s.v.Unmarshal(&next); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if !s.v.IsSet("autotrack.keywords") {
		next.AutoTrack.Keywords = model.DefaultKeywordSet()
	}
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
	return nil
}

// Path returns the config file in use, or the default location.
func (s *Store) Path() string {
	if used := s.v.ConfigFileUsed(); used != "" {
		return used
	}
	return ExpandPath(DefaultConfigPath)
}

// Update applies fn to a copy of the settings, validates the result and writes it to
// the config file. The in-memory snapshot changes only when the write succeeds.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings.clone()
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	path := s.Path()
	if err := writeFileAtomic(path, data, 0600); err != nil {
		return err
	}

	s.v.SetConfigFile(path)
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to re-read %s: %w", path, err)
	}
	s.settings = next
	return nil
}

// Watch reloads the settings whenever the config file changes and reports each
// accepted snapshot to onChange. It returns false when no config file is in use.
func (s *Store) Watch(onChange func(Settings)) bool {
	if s.v.ConfigFileUsed() == "" {
		return false
	}

	s.v.OnConfigChange(func(e fsnotify.Event) {
		if err := s.Reload(); err != nil {
			common.LogError(err, "Ignoring invalid configuration change", common.Fields{"file": e.Name})
			return
		}
		common.LogInfo("Configuration reloaded", common.Fields{"file": e.Name, "op": e.Op.String()})
		if onChange != nil {
			onChange(s.Settings())
		}
	})
	s.v.WatchConfig()
	return true
}

// writeFileAtomic writes data to a temp file next to filename and renames it into place.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tally-config-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmpFile.Name()) }()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	return nil
}

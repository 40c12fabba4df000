package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "$HOME/.local/share/tally/tally.db"

// Settings is the full configuration snapshot.
type Settings struct {
	Database     DatabaseSettings     `mapstructure:"database" yaml:"database"`
	Logging      LoggingSettings      `mapstructure:"logging" yaml:"logging"`
	AutoTrack    AutoTrackSettings    `mapstructure:"autotrack" yaml:"autotrack"`
	Currency     CurrencySettings     `mapstructure:"currency" yaml:"currency"`
	Notification NotificationSettings `mapstructure:"notification" yaml:"notification"`
	Categories   CategorySettings     `mapstructure:"categories" yaml:"categories"`
	Feed         FeedSettings         `mapstructure:"feed" yaml:"feed"`
}

// DatabaseSettings locates the SQLite ledger.
type DatabaseSettings struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingSettings configures slog output.
type LoggingSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// AutoTrackSettings controls detection.
type AutoTrackSettings struct {
	Keywords       model.KeywordSet  `mapstructure:"keywords" yaml:"keywords"`
	AssetRules     []model.AssetRule `mapstructure:"asset_rules" yaml:"asset_rules"`
	DefaultAssetID int64             `mapstructure:"default_asset_id" yaml:"default_asset_id"`
	DebounceMS     int               `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	DedupWindowMS  int               `mapstructure:"dedup_window_ms" yaml:"dedup_window_ms"`
	CooldownMS     int               `mapstructure:"cooldown_ms" yaml:"cooldown_ms"`
	Enabled        bool              `mapstructure:"enabled" yaml:"enabled"`
	RefundMonitor  bool              `mapstructure:"refund_monitor" yaml:"refund_monitor"`
	AssetsEnabled  bool              `mapstructure:"assets_enabled" yaml:"assets_enabled"`
	AutoAsset      bool              `mapstructure:"auto_asset" yaml:"auto_asset"`
}

// Debounce returns the scan debounce delay.
func (a AutoTrackSettings) Debounce() time.Duration {
	return time.Duration(a.DebounceMS) * time.Millisecond
}

// DedupWindow returns the duplicate suppression window.
func (a AutoTrackSettings) DedupWindow() time.Duration {
	return time.Duration(a.DedupWindowMS) * time.Millisecond
}

// Cooldown returns the post-dismiss cooldown.
func (a AutoTrackSettings) Cooldown() time.Duration {
	return time.Duration(a.CooldownMS) * time.Millisecond
}

// CurrencySettings holds the fallback currency symbol.
type CurrencySettings struct {
	Default string `mapstructure:"default" yaml:"default"`
}

// NotificationSettings lists the apps whose notifications are monitored.
type NotificationSettings struct {
	Apps []string `mapstructure:"apps" yaml:"apps"`
}

// Monitored reports whether notifications from app are handled.
func (n NotificationSettings) Monitored(app string) bool {
	return slices.Contains(n.Apps, app)
}

// CategorySettings holds the category catalogue.
type CategorySettings struct {
	Expense []string `mapstructure:"expense" yaml:"expense"`
	Income  []string `mapstructure:"income" yaml:"income"`
}

// For returns the catalogue for a trigger type.
func (c CategorySettings) For(trigger model.TriggerType) []string {
	if trigger == model.Income {
		return c.Income
	}
	return c.Expense
}

// FeedSettings sizes the event channel.
type FeedSettings struct {
	Buffer int `mapstructure:"buffer" yaml:"buffer"`
}

// DefaultSettings returns the configuration used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Database: DatabaseSettings{Path: DefaultDatabasePath},
		Logging:  LoggingSettings{Level: "info", Format: "console"},
		AutoTrack: AutoTrackSettings{
			Enabled:        true,
			RefundMonitor:  true,
			AssetsEnabled:  true,
			AutoAsset:      true,
			DefaultAssetID: -1,
			Keywords:       model.DefaultKeywordSet(),
			DebounceMS:     300,
			DedupWindowMS:  5000,
			CooldownMS:     2500,
		},
		Currency:     CurrencySettings{Default: model.DefaultCurrencySymbol},
		Notification: NotificationSettings{Apps: []string{model.AppWeChat, model.AppAlipay}},
		Categories: CategorySettings{
			Expense: model.DefaultExpenseCategories(),
			Income:  model.DefaultIncomeCategories(),
		},
		Feed: FeedSettings{Buffer: 64},
	}
}

// Validate checks the settings for values the engine cannot work with.
func (s Settings) Validate() error {
	for i, rule := range s.AutoTrack.AssetRules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("%w: autotrack.asset_rules[%d]: %w", common.ErrInvalidConfig, i, err)
		}
	}
	for _, entry := range s.AutoTrack.Keywords {
		if entry.App == "" {
			return fmt.Errorf("%w: autotrack.keywords entry without app", common.ErrInvalidConfig)
		}
	}
	if s.AutoTrack.DebounceMS < 0 || s.AutoTrack.DedupWindowMS < 0 || s.AutoTrack.CooldownMS < 0 {
		return fmt.Errorf("%w: autotrack durations must not be negative", common.ErrInvalidConfig)
	}
	if s.Feed.Buffer < 1 {
		return fmt.Errorf("%w: feed.buffer must be at least 1", common.ErrInvalidConfig)
	}
	switch s.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", common.ErrInvalidConfig, s.Logging.Format)
	}
	return nil
}

func (s Settings) clone() Settings {
	out := s
	out.AutoTrack.Keywords = s.AutoTrack.Keywords.Clone()
	out.AutoTrack.AssetRules = slices.Clone(s.AutoTrack.AssetRules)
	out.Notification.Apps = slices.Clone(s.Notification.Apps)
	out.Categories.Expense = slices.Clone(s.Categories.Expense)
	out.Categories.Income = slices.Clone(s.Categories.Income)
	return out
}

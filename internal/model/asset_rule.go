package model

import (
	"errors"
	"strings"
)

// NoAsset is the asset id meaning "not linked to any asset".
const NoAsset int64 = 0

// AssetRule maps a (source app, keyword) pair to the asset a detected transaction posts against.
type AssetRule struct {
	App     string `mapstructure:"app" yaml:"app"`
	Keyword string `mapstructure:"keyword" yaml:"keyword"`
	AssetID int64  `mapstructure:"asset_id" yaml:"asset_id"`
}

// Validate checks that the rule can ever match.
func (r AssetRule) Validate() error {
	if strings.TrimSpace(r.App) == "" {
		return errors.New("asset rule app is required")
	}
	if strings.TrimSpace(r.Keyword) == "" {
		return errors.New("asset rule keyword is required")
	}
	if r.AssetID <= 0 {
		return errors.New("asset rule asset id must be positive")
	}
	return nil
}

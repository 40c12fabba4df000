package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

const sampleConfig = `
database:
  path: /tmp/tally-test.db
autotrack:
  refund_monitor: false
  default_asset_id: 3
  debounce_ms: 150
  keywords:
    - app: com.eg.android.AlipayGphone
      expense: [支付成功, 付款成功]
      income: [收款到账]
  asset_rules:
    - app: com.tencent.mm
      keyword: 外卖
      asset_id: 5
    - app: com.tencent.mm
      keyword: 打车
      asset_id: 7
currency:
  default: HK$
`

func newTestViper(t *testing.T, content string) (*viper.Viper, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v, path
}

func TestNewStore_Defaults(t *testing.T) {
	store, err := NewStore(viper.New())
	require.NoError(t, err)

	s := store.Settings()
	want := DefaultSettings()
	assert.Equal(t, want.AutoTrack.Keywords, s.AutoTrack.Keywords)
	assert.True(t, s.AutoTrack.Enabled)
	assert.True(t, s.AutoTrack.RefundMonitor)
	assert.True(t, s.AutoTrack.AssetsEnabled)
	assert.Equal(t, int64(-1), s.AutoTrack.DefaultAssetID)
	assert.Equal(t, 300*time.Millisecond, s.AutoTrack.Debounce())
	assert.Equal(t, 5*time.Second, s.AutoTrack.DedupWindow())
	assert.Equal(t, 2500*time.Millisecond, s.AutoTrack.Cooldown())
	assert.Equal(t, "¥", s.Currency.Default)
	assert.True(t, s.Notification.Monitored(model.AppWeChat))
	assert.False(t, s.Notification.Monitored(model.AppTaobao))
	assert.Equal(t, model.DefaultIncomeCategories(), s.Categories.For(model.Income))
	assert.Equal(t, 64, s.Feed.Buffer)
}

func TestNewStore_FromFile(t *testing.T) {
	v, _ := newTestViper(t, sampleConfig)
	store, err := NewStore(v)
	require.NoError(t, err)

	s := store.Settings()
	assert.Equal(t, "/tmp/tally-test.db", s.Database.Path)
	assert.False(t, s.AutoTrack.RefundMonitor)
	assert.True(t, s.AutoTrack.Enabled, "unset keys keep their defaults")
	assert.Equal(t, int64(3), s.AutoTrack.DefaultAssetID)
	assert.Equal(t, 150*time.Millisecond, s.AutoTrack.Debounce())
	assert.Equal(t, "HK$", s.Currency.Default)

	assert.Equal(t, []string{"支付成功", "付款成功"}, s.AutoTrack.Keywords.Keywords(model.AppAlipay, model.Expense))
	assert.Empty(t, s.AutoTrack.Keywords.Keywords(model.AppWeChat, model.Expense), "configured keywords replace the defaults")

	require.Len(t, s.AutoTrack.AssetRules, 2)
	assert.Equal(t, model.AssetRule{App: model.AppWeChat, Keyword: "打车", AssetID: 7}, s.AutoTrack.AssetRules[1])
}

func TestNewStore_Invalid(t *testing.T) {
	v, _ := newTestViper(t, `
autotrack:
  asset_rules:
    - app: com.tencent.mm
      keyword: ""
      asset_id: 5
`)
	_, err := NewStore(v)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	v, _ = newTestViper(t, "feed:\n  buffer: 0\n")
	_, err = NewStore(v)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestStore_SettingsIsACopy(t *testing.T) {
	store, err := NewStore(viper.New())
	require.NoError(t, err)

	s := store.Settings()
	s.AutoTrack.Keywords[0].Expense[0] = "changed"
	s.Categories.Expense[0] = "changed"

	fresh := store.Settings()
	assert.Equal(t, "付款方式", fresh.AutoTrack.Keywords[0].Expense[0])
	assert.Equal(t, "餐饮", fresh.Categories.Expense[0])
}

func TestStore_Update(t *testing.T) {
	v, path := newTestViper(t, sampleConfig)
	store, err := NewStore(v)
	require.NoError(t, err)

	err = store.Update(func(s *Settings) {
		s.AutoTrack.Keywords = s.AutoTrack.Keywords.Add(model.AppWeChat, model.Expense, "付款方式")
		s.AutoTrack.AssetRules = append(s.AutoTrack.AssetRules, model.AssetRule{
			App: model.AppAlipay, Keyword: "花呗", AssetID: 9,
		})
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"付款方式"}, store.Settings().AutoTrack.Keywords.Keywords(model.AppWeChat, model.Expense))

	// A fresh load of the written file sees the same settings.
	reloaded := viper.New()
	reloaded.SetConfigFile(path)
	require.NoError(t, reloaded.ReadInConfig())
	fresh, err := NewStore(reloaded)
	require.NoError(t, err)

	s := fresh.Settings()
	assert.Equal(t, []string{"付款方式"}, s.AutoTrack.Keywords.Keywords(model.AppWeChat, model.Expense))
	assert.Equal(t, []string{"支付成功", "付款成功"}, s.AutoTrack.Keywords.Keywords(model.AppAlipay, model.Expense))
	require.Len(t, s.AutoTrack.AssetRules, 3)
	assert.Equal(t, int64(9), s.AutoTrack.AssetRules[2].AssetID)
	assert.Equal(t, "HK$", s.Currency.Default)
	assert.Equal(t, 150, s.AutoTrack.DebounceMS)
}

func TestStore_UpdateRejectsInvalid(t *testing.T) {
	v, path := newTestViper(t, sampleConfig)
	store, err := NewStore(v)
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = store.Update(func(s *Settings) {
		s.AutoTrack.AssetRules = append(s.AutoTrack.AssetRules, model.AssetRule{App: model.AppWeChat})
	})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
	assert.Len(t, store.Settings().AutoTrack.AssetRules, 2)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStore_Watch(t *testing.T) {
	v, path := newTestViper(t, sampleConfig)
	store, err := NewStore(v)
	require.NoError(t, err)

	changes := make(chan Settings, 4)
	require.True(t, store.Watch(func(s Settings) { changes <- s }))

	updated := []byte("autotrack:\n  enabled: false\n  debounce_ms: 400\n")
	require.NoError(t, os.WriteFile(path, updated, 0600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-changes:
			if s.AutoTrack.DebounceMS != 400 {
				continue
			}
			assert.False(t, s.AutoTrack.Enabled)
			assert.False(t, store.Settings().AutoTrack.Enabled)
			return
		case <-deadline:
			t.Fatal("config change was not picked up")
		}
	}
}

func TestStore_WatchWithoutFile(t *testing.T) {
	store, err := NewStore(viper.New())
	require.NoError(t, err)
	assert.False(t, store.Watch(nil))
}

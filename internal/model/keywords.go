package model

import (
	"fmt"
	"slices"
	"strings"
)

// TriggerType indicates whether a snapshot is an expense or an income event.
type TriggerType int

const (
	// Expense is a payment leaving the user's account.
	Expense TriggerType = 0
	// Income is money arriving, including refunds.
	Income TriggerType = 1
)

func (t TriggerType) String() string {
	if t == Income {
		return "income"
	}
	return "expense"
}

// ParseTriggerType parses "expense" or "income".
func ParseTriggerType(s string) (TriggerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "0":
		return Expense, nil
	case "income", "1":
		return Income, nil
	}
	return Expense, fmt.Errorf("invalid trigger type %q (want expense or income)", s)
}

// Supported source app package names.
const (
	AppWeChat    = "com.tencent.mm"
	AppAlipay    = "com.eg.android.AlipayGphone"
	AppJingdong  = "com.jingdong.app.mall"
	AppPinduoduo = "com.xunmeng.pinduoduo"
	AppDouyin    = "com.ss.android.ugc.aweme"
	AppTaobao    = "com.taobao.taobao"
	AppMeituan   = "com.sankuai.meituan"
)

// DefaultAppName is the display name used for unrecognized source apps.
const DefaultAppName = "自动记账"

// appNames maps a package name fragment to a display name, checked in order.
var appNames = []struct {
	fragment string
	name     string
}{
	{"tencent.mm", "微信"},
	{"Alipay", "支付宝"},
	{"taobao", "淘宝"},
	{"jingdong", "京东"},
	{"pinduoduo", "拼多多"},
	{"aweme", "抖音"},
	{"meituan", "美团"},
}

// AppDisplayName returns the human readable name of a source app.
func AppDisplayName(app string) string {
	for _, entry := range appNames {
		if strings.Contains(app, entry.fragment) {
			return entry.name
		}
	}
	return DefaultAppName
}

// SupportedApps lists the package names with built-in display names.
func SupportedApps() []string {
	return []string{AppWeChat, AppAlipay, AppTaobao, AppJingdong, AppPinduoduo, AppDouyin, AppMeituan}
}

// AppKeywords holds the trigger substrings configured for one source app.
type AppKeywords struct {
	App     string   `mapstructure:"app" yaml:"app"`
	Expense []string `mapstructure:"expense" yaml:"expense,omitempty"`
	Income  []string `mapstructure:"income" yaml:"income,omitempty"`
}

// KeywordSet maps (source app, trigger type) to trigger substrings.
type KeywordSet []AppKeywords

// DefaultKeywordSet returns the keywords installed on first run.
func DefaultKeywordSet() KeywordSet {
	return KeywordSet{
		{App: AppWeChat, Expense: []string{"付款方式"}, Income: []string{"已存入零钱"}},
		{App: AppAlipay, Expense: []string{"支付成功"}},
	}
}

// Keywords returns the substrings for app and trigger. The result must not be modified.
func (ks KeywordSet) Keywords(app string, trigger TriggerType) []string {
	for _, entry := range ks {
		if entry.App != app {
			continue
		}
		if trigger == Income {
			return entry.Income
		}
		return entry.Expense
	}
	return nil
}

// Add returns a copy of the set with keyword added. Duplicates are ignored.
func (ks KeywordSet) Add(app string, trigger TriggerType, keyword string) KeywordSet {
	keyword = strings.TrimSpace(keyword)
	out := ks.Clone()
	if keyword == "" {
		return out
	}
	for i := range out {
		if out[i].App != app {
			continue
		}
		list := out[i].list(trigger)
		if !slices.Contains(*list, keyword) {
			*list = append(*list, keyword)
		}
		return out
	}
	entry := AppKeywords{App: app}
	*entry.list(trigger) = []string{keyword}
	return append(out, entry)
}

// Remove returns a copy of the set without keyword. Apps left without keywords are dropped.
func (ks KeywordSet) Remove(app string, trigger TriggerType, keyword string) KeywordSet {
	out := ks.Clone()
	for i := range out {
		if out[i].App != app {
			continue
		}
		list := out[i].list(trigger)
		*list = slices.DeleteFunc(*list, func(k string) bool { return k == keyword })
	}
	return slices.DeleteFunc(out, func(e AppKeywords) bool {
		return len(e.Expense) == 0 && len(e.Income) == 0
	})
}

// Clone returns a deep copy of the set.
func (ks KeywordSet) Clone() KeywordSet {
	out := make(KeywordSet, len(ks))
	for i, entry := range ks {
		out[i] = AppKeywords{
			App:     entry.App,
			Expense: slices.Clone(entry.Expense),
			Income:  slices.Clone(entry.Income),
		}
	}
	return out
}

func (a *AppKeywords) list(trigger TriggerType) *[]string {
	if trigger == Income {
		return &a.Income
	}
	return &a.Expense
}

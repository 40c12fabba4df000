package pattern

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/tally/internal/model"
)

// Classifier decides expense / income / irrelevant from per-app keyword sets.
type Classifier struct {
	keywords KeywordSource
}

// NewClassifier creates a classifier over the given keywords.
func NewClassifier(keywords KeywordSource) *Classifier {
	return &Classifier{keywords: keywords}
}

// Classify walks the tree in pre-order and returns the first keyword hit.
// Expense keywords are checked before income keywords on every fragment.
func (c *Classifier) Classify(app string, root model.TextNode) (Match, bool) {
	if c.keywords == nil {
		return Match{}, false
	}
	expense := c.keywords.Keywords(app, model.Expense)
	income := c.keywords.Keywords(app, model.Income)
	if len(expense) == 0 && len(income) == 0 {
		return Match{}, false
	}

	var (
		match Match
		found bool
	)
	model.Walk(root, func(n model.TextNode) bool {
		text := n.Text()
		if text == "" {
			return true
		}
		if kw, ok := firstContained(text, expense); ok {
			match, found = Match{Trigger: model.Expense, Keyword: kw}, true
			return false
		}
		if kw, ok := firstContained(text, income); ok {
			match, found = Match{Trigger: model.Income, Keyword: kw}, true
			return false
		}
		return true
	})
	return match, found
}

// ClassifyNotification applies the notification gate to title+body text. A notification is a
// candidate when it carries the refund marker or one of the app's income keywords; it is
// always an income event.
func (c *Classifier) ClassifyNotification(app, text string) (NotificationMatch, bool) {
	if strings.Contains(text, RefundMarker) {
		return NotificationMatch{
			Trigger:  model.Income,
			Keyword:  RefundMarker,
			Category: model.RefundCategory,
			Refund:   true,
		}, true
	}
	if c.keywords == nil {
		return NotificationMatch{}, false
	}
	if kw, ok := firstContained(text, c.keywords.Keywords(app, model.Income)); ok {
		return NotificationMatch{
			Trigger:  model.Income,
			Keyword:  kw,
			Category: model.AppDisplayName(app),
		}, true
	}
	return NotificationMatch{}, false
}

func firstContained(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

// AssetMatcher maps (source app, text) to an asset id using the configured rules.
type AssetMatcher struct {
	rules   []model.AssetRule
	enabled bool
}

// NewAssetMatcher creates a matcher. Rules are ordered longest keyword first so the most
// specific rule wins; rules with equal keyword length keep their configured order.
func NewAssetMatcher(rules []model.AssetRule, enabled bool) *AssetMatcher {
	ordered := slices.Clone(rules)
	slices.SortStableFunc(ordered, func(a, b model.AssetRule) int {
		return utf8.RuneCountInString(b.Keyword) - utf8.RuneCountInString(a.Keyword)
	})
	return &AssetMatcher{rules: ordered, enabled: enabled}
}

// Match returns the asset id of the best rule for app whose keyword occurs in text, or NoMatch.
func (m *AssetMatcher) Match(app, text string) int64 {
	if !m.enabled {
		return NoMatch
	}
	for _, rule := range m.rules {
		if rule.App != app || rule.Keyword == "" {
			continue
		}
		if strings.Contains(text, rule.Keyword) {
			return rule.AssetID
		}
	}
	return NoMatch
}

// Resolve is Match with the caller fallback applied: the default asset when it is positive,
// otherwise model.NoAsset.
func (m *AssetMatcher) Resolve(app, text string, defaultID int64) int64 {
	if id := m.Match(app, text); id != NoMatch {
		return id
	}
	if defaultID > 0 {
		return defaultID
	}
	return model.NoAsset
}

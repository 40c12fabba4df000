// Package pattern decides whether captured text describes a payment event and which asset account it belongs to.
package pattern

import (
	"github.com/Veraticus/tally/internal/model"
)

// KeywordSource supplies the trigger keywords configured per source app.
type KeywordSource interface {
	// Keywords returns the substrings that mark app text as the given trigger type.
	Keywords(app string, trigger model.TriggerType) []string
}

// Match describes why a snapshot was classified as a transaction event.
type Match struct {
	Keyword string
	Trigger model.TriggerType
}

// NotificationMatch is the outcome of the notification gate.
type NotificationMatch struct {
	Keyword  string
	Category string
	Trigger  model.TriggerType
	Refund   bool
}

// RefundMarker is the substring that marks a notification as a refund.
const RefundMarker = "退款"

// NoMatch is returned by AssetMatcher when no rule applies.
const NoMatch int64 = -1

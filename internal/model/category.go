package model

import "slices"

// CustomCategory is the catalogue entry that lets the user type a free-form category.
const CustomCategory = "自定义"

// RefundCategory is the category assigned to refund notifications.
const RefundCategory = "退款"

// DefaultExpenseCategories is the expense catalogue used when none is configured.
func DefaultExpenseCategories() []string {
	return []string{"餐饮", "交通", "购物", "娱乐", "医疗", "教育", "居家", CustomCategory}
}

// DefaultIncomeCategories is the income catalogue used when none is configured.
func DefaultIncomeCategories() []string {
	return []string{"工资", "奖金", "投资", "兼职", "礼金", CustomCategory}
}

var shoppingApps = []string{"微信", "支付宝", "淘宝", "京东", "拼多多"}

// SuggestCategory maps a raw category (usually an app display name) onto the catalogue.
// It returns the catalogue entry to preselect and whether raw has to be entered as a custom value.
func SuggestCategory(trigger TriggerType, raw string, catalogue []string) (string, bool) {
	if slices.Contains(catalogue, raw) {
		return raw, false
	}
	if trigger == Expense {
		if slices.Contains(shoppingApps, raw) {
			return "购物", false
		}
		if raw == "美团" {
			return "餐饮", false
		}
	}
	return CustomCategory, true
}

// FallbackCategory is used when the user picks the custom category but leaves it empty.
func FallbackCategory(trigger TriggerType) string {
	if trigger == Income {
		return RefundCategory
	}
	return "其他"
}

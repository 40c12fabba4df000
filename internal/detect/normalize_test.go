package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"２０.５０", "20.50"},
		{"１２：３０", "12:30"},
		{"￥８８．８０", "¥88.80"},
		{"付款方式", "付款方式"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestPrepare(t *testing.T) {
	_, ok := prepare("   ")
	assert.False(t, ok)

	_, ok = prepare("１２：３０")
	assert.False(t, ok)

	got, ok := prepare("共２件 合计 36.80")
	assert.True(t, ok)
	assert.Equal(t, "共合计 36.80", got)
}

func TestMatchSymbol(t *testing.T) {
	assert.Equal(t, "HK$", matchSymbol("HK$"))
	assert.Equal(t, "$", matchSymbol(" $"))
	assert.Equal(t, "¥", matchSymbol("-¥"))
	assert.Equal(t, "R$", matchSymbol("R$"))
	assert.Equal(t, "", matchSymbol("金额:"))
	assert.Equal(t, "", matchSymbol(""))
}

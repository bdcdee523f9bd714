package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	t.Run("collapses whitespace, trims and lowercases", func(t *testing.T) {
		assert.Equal(t, "starbucks store #123", Text("  STARBUCKS   Store\t#123  "))
	})

	t.Run("idempotent", func(t *testing.T) {
		once := Text("  Multiple   SPACES\nand lines ")
		assert.Equal(t, once, Text(once))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", Text(""))
		assert.Equal(t, "", Text("   \t\n  "))
	})
}

func TestApplyChain(t *testing.T) {
	result := ApplyChain("  Check #1042  ", "trim", "digits_only")
	assert.Equal(t, "1042", result)
}

func TestApply_UnknownNormalizerPassesThrough(t *testing.T) {
	assert.Equal(t, "Value", Apply("Value", "missing"))
}

func TestRegister(t *testing.T) {
	Register("reverse_test", func(s string) string {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	})

	fn, ok := Get("reverse_test")
	assert.True(t, ok)
	assert.Equal(t, "cba", fn("abc"))
}

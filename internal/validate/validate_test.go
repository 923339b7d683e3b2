package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampInt64(t *testing.T) {
	assert.Equal(t, int64(100), ClampInt64(50, 100, 500000))
	assert.Equal(t, int64(500000), ClampInt64(600000, 100, 500000))
	assert.Equal(t, int64(2500), ClampInt64(2500, 100, 500000))
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 1, ClampInt(0, 1, 100))
	assert.Equal(t, 1, ClampInt(-5, 1, 100))
	assert.Equal(t, 100, ClampInt(150, 1, 100))
	assert.Equal(t, 7, ClampInt(7, 1, 100))
}

func TestNormalizeCPF(t *testing.T) {
	assert.Equal(t, "52998224725", NormalizeCPF("529.982.247-25"))
	assert.Equal(t, "52998224725", NormalizeCPF("52998224725"))
	assert.Equal(t, "", NormalizeCPF("abc"))
}

func TestIsValidCPF(t *testing.T) {
	tests := []struct {
		name  string
		cpf   string
		valid bool
	}{
		{"valid formatted", "529.982.247-25", true},
		{"valid digits only", "52998224725", true},
		{"bad check digit", "52998224724", false},
		{"all equal digits", "11111111111", false},
		{"too short", "5299822472", false},
		{"too long", "529982247255", false},
		{"empty", "", false},
		{"letters", "abcdefghijk", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidCPF(tt.cpf))
		})
	}
}

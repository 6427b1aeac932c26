package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDV7(t *testing.T) {
	a, b := GenerateUUIDV7(), GenerateUUIDV7()
	assert.NotEqual(t, a, b)
	assert.True(t, IsUUID(a))
	assert.Equal(t, "7", a[14:15])
}

func TestIsUUID(t *testing.T) {
	for id, want := range map[string]bool{
		"0190f6d4-5c4e-7b1a-9f3e-2a6c1d9e8b70":          true,
		"urn:uuid:0190f6d4-5c4e-7b1a-9f3e-2a6c1d9e8b70": false,
		"0190f6d45c4e7b1a9f3e2a6c1d9e8b70":              false,
		"missing":                                       false,
		"":                                              false,
	} {
		assert.Equal(t, want, IsUUID(id), id)
	}
}

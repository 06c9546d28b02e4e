package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		fragments []string
		location  *string
		remote    bool
		hybrid    bool
	}{
		{"city and remote", []string{"Алматы", "Удаленно"}, ptr("Алматы"), true, false},
		{"hybrid only", []string{"Гибрид"}, nil, false, true},
		{"empty", nil, nil, false, false},
		{"padded badges", []string{"  Удаленно ", " Астана", "Гибрид"}, ptr("Астана"), true, true},
		{"flag order does not matter", []string{"Гибрид", "Удаленно", "Шымкент", "Алматы"}, ptr("Шымкент"), true, true},
		{"repeated flag consumed once", []string{"Удаленно", "Удаленно"}, ptr("Удаленно"), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			location, remote, hybrid := ParseLocation(tt.fragments)
			assert.Equal(t, tt.location, location)
			assert.Equal(t, tt.remote, remote)
			assert.Equal(t, tt.hybrid, hybrid)
		})
	}
}

func TestParseLocationNormalizesDecomposedText(t *testing.T) {
	t.Parallel()

	decomposed := "Кайнар"
	location, remote, _ := ParseLocation([]string{"Удаленно", decomposed})
	assert.True(t, remote)
	assert.Equal(t, ptr("Кайнар"), location)
}

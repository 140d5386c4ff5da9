package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransliterate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"аспирин", "aspirin"},
		{"Аспирин", "Aspirin"},
		{"aspirin", "аспирин"},
		{"asp", "асп"},
		{"щука", "shchuka"},
		{"shchuka", "щука"},
		{"Jod", "Йод"},
		{"zhenshen", "женшен"},
		{"Но-шпа 40", "No-shpa 40"},
		{"aspirin аспирин", "aspirin аспирин"},
		{"12345", "12345"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Transliterate(tt.in))
		})
	}
}

func TestSearchNeedles(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"асп", "asp"}, SearchNeedles("  АСП "))
	assert.Equal(t, []string{"asp", "асп"}, SearchNeedles("Asp"))
	assert.Equal(t, []string{"100"}, SearchNeedles("100"))
	assert.Nil(t, SearchNeedles("   "))
}

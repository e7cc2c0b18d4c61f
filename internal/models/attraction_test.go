package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImagePredicatesAgree(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
		want  bool
	}{
		{"nil", nil, false},
		{"empty body", []byte{}, false},
		{"bytes", []byte("jpeg"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail := NewDetailInfo()
			detail.Image = tt.image
			record := NewAttraction(ListingItem{Title: "Rose Hall", DetailLink: "https://example.test/a/2"}, detail, 1)

			assert.Equal(t, tt.want, detail.HasImage())
			assert.Equal(t, tt.want, record.HasImage())
		})
	}
}

func TestNewDetailInfoDefaults(t *testing.T) {
	d := NewDetailInfo()
	assert.False(t, d.HasAddress())
	assert.False(t, d.HasPhone())
	assert.False(t, d.HasDescription())
	assert.False(t, d.HasImage())
}

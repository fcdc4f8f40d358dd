package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON(t *testing.T) {
	doc := FromJSON([]byte(`{"district":"Kamrup","ph":7.2}`))
	require.NotNil(t, doc)
	assert.Equal(t, "Kamrup", doc.String("district"))

	assert.Empty(t, FromJSON(nil))
	assert.Empty(t, FromJSON([]byte("not json")))
}

func TestStringFallbackOrder(t *testing.T) {
	doc := Document{"village": "", "area": "Sonapur", "district": "Kamrup"}
	assert.Equal(t, "Sonapur", doc.String("location", "village", "area", "district"))
}

func TestStringCoercesScalars(t *testing.T) {
	doc := Document{"phone": float64(9876543210), "flag": true}
	assert.Equal(t, "9876543210", doc.String("phone"))
	assert.Equal(t, "true", doc.String("flag"))
}

func TestFloatCoercion(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"float", 7.2, 7.2, true},
		{"int", 12, 12, true},
		{"numeric string", " 3.5 ", 3.5, true},
		{"bad string", "acidic", 0, false},
		{"nil", nil, 0, false},
		{"list", []any{1.0}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Document{"v": tt.value}
			got, ok := doc.Float("v")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFloatOr(t *testing.T) {
	doc := Document{"ph": "bad"}
	assert.Equal(t, 0.0, doc.FloatOr(0, "ph"))
	assert.Equal(t, 6.8, doc.FloatOr(6.8, "missing"))
}

func TestChild(t *testing.T) {
	doc := Document{
		"meta": map[string]any{"submitted_by": "u1"},
		"name": "plain",
	}
	require.NotNil(t, doc.Child("meta"))
	assert.Equal(t, "u1", doc.Child("meta").String("submitted_by"))
	assert.Nil(t, doc.Child("name"))
	assert.Nil(t, doc.Child("missing"))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{"fever", "vomiting"},
		Document{"symptoms": []any{"fever", "vomiting"}}.Strings("symptoms"))
	assert.Equal(t, []string{"fever", "loose motion"},
		Document{"symptoms": "fever, loose motion"}.Strings("symptoms"))
	assert.Nil(t, Document{}.Strings("symptoms"))
}

func TestNilDocument(t *testing.T) {
	var doc Document
	assert.Equal(t, "", doc.String("any"))
	_, ok := doc.Float("any")
	assert.False(t, ok)
	assert.False(t, doc.Has("any"))
}

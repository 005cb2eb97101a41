package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traflow/internal/model"
)

func resolutionCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat := &Catalog{
		RiskAreas: []model.RiskArea{
			{ID: "ai_risk", Name: "AI Risk"},
			{ID: "data_privacy", Name: "Data Privacy Risk"},
			{ID: "ip_risk", Name: "IP Risk"},
			{ID: "cyber_security", Name: "Cyber Security Risk"},
		},
	}
	cat.index()
	return cat
}

func TestResolveAreaID(t *testing.T) {
	cat := resolutionCatalog(t)

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"exact id", "ai_risk", "ai_risk", true},
		{"exact name", "AI Risk", "ai_risk", true},
		{"lowercase name", "ai risk", "ai_risk", true},
		{"name without risk suffix", "data privacy", "data_privacy", true},
		{"synonym artificial intelligence", "Artificial Intelligence", "ai_risk", true},
		{"synonym intellectual property", "intellectual property", "ip_risk", true},
		{"substring in sentence", "the cyber security risk area", "cyber_security", true},
		{"unknown", "quantum blockchain", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cat.ResolveAreaID(tt.input)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAreaName(t *testing.T) {
	cat := resolutionCatalog(t)
	assert.Equal(t, "AI Risk", cat.AreaName("ai_risk"))
	// Unknown ids come back as-is
	assert.Equal(t, "nope", cat.AreaName("nope"))
}

package analyzer_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/siteatlas/internal/analyzer"
)

const sampleHTML = `<html>
<head><title>Astronomy Guide</title></head>
<body>
	<h1>Telescopes</h1>
	<h2>Choosing a telescope</h2>
	<p>A telescope gathers light from distant objects.</p>
	<p>Refractor telescopes use lenses while reflector telescopes use mirrors.</p>
	<script>var tracking = true;</script>
</body>
</html>`

func TestExtractContent(t *testing.T) {
	h := analyzer.NewHeuristic()

	summary, err := h.ExtractContent(sampleHTML)
	require.NoError(t, err)

	assert.Equal(t, "Astronomy Guide", summary.Title)
	assert.Equal(t, []string{"Telescopes", "Choosing a telescope"}, summary.Headings)
	assert.Len(t, summary.Paragraphs, 2)
	assert.Contains(t, summary.Text, "telescope gathers light")
	assert.NotContains(t, summary.Text, "tracking", "script content must be stripped")
}

func TestExtractTopics(t *testing.T) {
	h := analyzer.NewHeuristic()

	summary, err := h.ExtractContent(sampleHTML)
	require.NoError(t, err)

	topics := h.ExtractTopics(summary)
	require.NotEmpty(t, topics.Keywords)
	// "telescope"/"telescopes" dominate the sample
	assert.Contains(t, topics.Keywords[0], "telescope")
	require.Len(t, topics.Categories, 1)
	assert.NotEmpty(t, topics.MainTopics)
}

func TestIdentifyEntities(t *testing.T) {
	h := analyzer.NewHeuristic()

	entities := h.IdentifyEntities("The Hubble Space Telescope orbits Earth. Hubble Space Telescope images are public.")
	assert.Contains(t, entities, "Hubble Space Telescope")
	assert.Contains(t, entities, "Earth")

	// deduplicated
	count := 0
	for _, e := range entities {
		if e == "Hubble Space Telescope" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestGenerateEmbedding(t *testing.T) {
	h := analyzer.NewHeuristic()

	vec := h.GenerateEmbedding("telescopes gather light from distant stars")
	require.Len(t, vec, analyzer.EmbeddingDim)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5, "embedding must be unit length")

	// deterministic
	again := h.GenerateEmbedding("telescopes gather light from distant stars")
	assert.Equal(t, vec, again)

	// empty input yields the zero vector, not NaN
	zero := h.GenerateEmbedding("")
	for _, v := range zero {
		assert.False(t, math.IsNaN(float64(v)))
	}
}

package hair

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrediction(t *testing.T) {
	typ, conf, err := parsePrediction(`{"type":"curly","confidences":{"curly":0.8,"wavy":0.2}}`)
	require.NoError(t, err)
	assert.Equal(t, "curly", typ)
	assert.InDelta(t, 0.8, conf["curly"], 1e-9)
}

func TestParsePredictionFencedJSON(t *testing.T) {
	text := "```json\n{\"type\": \"Wavy\", \"confidences\": {\"wavy\": 0.9}}\n```"
	typ, _, err := parsePrediction(text)
	require.NoError(t, err)
	assert.Equal(t, "wavy", typ)
}

func TestParsePredictionUnknownClass(t *testing.T) {
	_, _, err := parsePrediction(`{"type":"bald"}`)
	assert.Error(t, err)
}

func TestParsePredictionGarbage(t *testing.T) {
	_, _, err := parsePrediction("no json here")
	assert.Error(t, err)
}

func TestClassifyRejectsEmptyPhoto(t *testing.T) {
	a := NewGeminiAnalyzer("key", "")
	_, _, err := a.Classify(context.Background(), nil, "image/png")
	assert.Error(t, err)
}

func TestClassifyRequiresKey(t *testing.T) {
	a := NewGeminiAnalyzer("", "")
	_, _, err := a.Classify(context.Background(), []byte{1}, "image/png")
	assert.Error(t, err)
}

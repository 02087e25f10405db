package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dermaCareAi/internal/catalog"
	"dermaCareAi/internal/hair"
	"dermaCareAi/internal/llm"
	"dermaCareAi/internal/skin"
)

type fakeChat struct {
	response string
	err      error
	lastUser string
}

func (f *fakeChat) ChatCompletion(_ context.Context, messages []llm.ChatMessage, _ float64) (string, error) {
	for _, msg := range messages {
		if msg.Role == "user" {
			f.lastUser = msg.Content
		}
	}
	return f.response, f.err
}

func TestSkincareParsesModelResponse(t *testing.T) {
	chat := &fakeChat{response: `Here you go:
[{"name":"Foam Cleanser","brand":"Acme","price":9.99,"category":"Cleanser","url":"https://example.com/p","reason":"Suits oily skin."}]`}

	rec := NewLLM(chat, nil)
	products, err := rec.Skincare(context.Background(), skin.Profile{Tone: 2, Type: skin.TypeOily})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Foam Cleanser", products[0].Name)
	assert.Equal(t, "9.99", products[0].Price)
	assert.Equal(t, "cleanser", products[0].Category)
}

func TestSkincareEmbedsCatalogPreview(t *testing.T) {
	cat, err := catalog.Parse(strings.NewReader("product_name,product_url,product_type,price\nGlow Serum,https://example.com/glow,serum,19.99\n"))
	require.NoError(t, err)

	chat := &fakeChat{response: `[{"name":"Glow Serum","brand":"Acme","price":"19.99","category":"serum","url":"https://example.com/glow","reason":"ok"}]`}
	rec := NewLLM(chat, cat)

	_, err = rec.Skincare(context.Background(), skin.Profile{Tone: 4, Type: skin.TypeNormal})
	require.NoError(t, err)
	assert.Contains(t, chat.lastUser, "Glow Serum")
}

func TestSkincareFallsBackOnError(t *testing.T) {
	chat := &fakeChat{err: errors.New("boom")}
	rec := NewLLM(chat, nil)

	products, err := rec.Skincare(context.Background(), skin.Profile{Tone: 1, Type: skin.TypeDry, HasAcne: true, AcnePercent: 0.2})
	require.NoError(t, err)
	assert.NotEmpty(t, products)

	var hasTreatment bool
	for _, p := range products {
		if p.Category == "treatment" {
			hasTreatment = true
		}
	}
	assert.True(t, hasTreatment, "acne profile should include a treatment")
}

func TestSkincareFallsBackOnGarbage(t *testing.T) {
	chat := &fakeChat{response: "sorry, I cannot help with that"}
	rec := NewLLM(chat, nil)

	products, err := rec.Skincare(context.Background(), skin.Profile{Tone: 5, Type: skin.TypeCombination})
	require.NoError(t, err)
	assert.NotEmpty(t, products)
}

func TestHaircareParsesModelResponse(t *testing.T) {
	chat := &fakeChat{response: `[{"name":"Curl Cream","brand":"Acme","type":"Styling","price_estimate":"12.00","reason":"Defines curls."}]`}
	rec := NewLLM(chat, nil)

	products, err := rec.Haircare(context.Background(), hair.Profile{Type: "curly"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "styling", products[0].Type)
}

func TestStaticHaircarePerType(t *testing.T) {
	rec := NewStatic()

	locs, err := rec.Haircare(context.Background(), hair.Profile{Type: "dreadlocks"})
	require.NoError(t, err)
	assert.Len(t, locs, 5)

	straight, err := rec.Haircare(context.Background(), hair.Profile{Type: "straight", Dandruff: "severe"})
	require.NoError(t, err)
	assert.Contains(t, straight[0].Name, "Anti-Dandruff")
}

func TestParseArraySkipsNamelessEntries(t *testing.T) {
	products, err := parseSkincare(`[{"brand":"NoName"},{"name":"Real","brand":"Acme"}]`)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Real", products[0].Name)
}

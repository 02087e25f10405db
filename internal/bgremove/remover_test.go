package bgremove

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeNRGBA(t *testing.T, img *image.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPostProcessAlphaChannel(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 20})  // halo, drop
	img.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128}) // keep as is
	img.SetNRGBA(2, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 230}) // solidify

	out, err := PostProcess(encodeNRGBA(t, img))
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	_, _, _, a0 := decoded.At(0, 0).RGBA()
	_, _, _, a1 := decoded.At(1, 0).RGBA()
	_, _, _, a2 := decoded.At(2, 0).RGBA()
	assert.Zero(t, a0)
	assert.Equal(t, uint32(128*257), a1)
	assert.Equal(t, uint32(0xffff), a2)
}

func TestPostProcessPassesThroughNonPNG(t *testing.T) {
	data := []byte("not a png at all")
	out, err := PostProcess(data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestRembgRemover(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	cutout := encodeNRGBA(t, img)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/remove", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("a"))
		assert.Equal(t, "240", r.URL.Query().Get("af"))
		assert.Equal(t, "10", r.URL.Query().Get("ab"))
		assert.Equal(t, "10", r.URL.Query().Get("ae"))
		w.Write(cutout)
	}))
	defer srv.Close()

	remover := NewRembg(srv.URL)
	out, err := remover.Remove(context.Background(), []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, cutout, out)
}

func TestRembgRemoverErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	remover := NewRembg(srv.URL)
	_, err := remover.Remove(context.Background(), []byte{1})
	assert.Error(t, err)
}

func TestNewRembgEmptyURL(t *testing.T) {
	assert.Nil(t, NewRembg("  "))
}

type stubRemover struct {
	out []byte
	err error
}

func (s stubRemover) Remove(context.Context, []byte) ([]byte, error) {
	return s.out, s.err
}

func TestChainFallsThrough(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	good := encodeNRGBA(t, img)

	chain := NewChain(
		stubRemover{err: errors.New("down")},
		stubRemover{out: good},
	)
	out, err := chain.Remove(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestChainAllFailReturnsOriginal(t *testing.T) {
	chain := NewChain(stubRemover{err: errors.New("down")})
	original := []byte{9, 9, 9}
	out, processed := chain.RemoveOrOriginal(context.Background(), original)
	assert.False(t, processed)
	assert.Equal(t, original, out)
}

func TestChainAvailability(t *testing.T) {
	assert.False(t, NewChain().Available())
	assert.False(t, NewChain(nil).Available())
	assert.True(t, NewChain(stubRemover{}).Available())
}

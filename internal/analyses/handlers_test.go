package analyses

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dermaCareAi/internal/bgremove"
	"dermaCareAi/internal/events"
	"dermaCareAi/internal/recommend"
	"dermaCareAi/internal/scrape"
	"dermaCareAi/internal/storage"
)

func facePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 220, G: 180, B: 150, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartPhoto(t *testing.T, fields map[string]string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if photo != nil {
		part, err := writer.CreateFormFile("photo", "face.png")
		require.NoError(t, err)
		_, err = part.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func newTestHandler(store storage.Store) Handler {
	return Handler{
		Store:       store,
		Broker:      events.NewBroker(),
		Recommender: recommend.NewStatic(),
		Remover:     bgremove.NewChain(),
		Resolver:    scrape.NewPlaceholder(),
	}
}

func TestCreateSkinAnalysis(t *testing.T) {
	store := storage.NewInMemoryStore()
	h := newTestHandler(store)

	body, contentType := multipartPhoto(t, map[string]string{
		"kind":     "skin",
		"concerns": "redness, large pores",
	}, facePNG(t))

	req := httptest.NewRequest(http.MethodPost, "/api/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created storage.Analysis
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, storage.KindSkin, created.Kind)
	assert.Equal(t, []string{"redness", "large pores"}, created.Concerns)
	assert.GreaterOrEqual(t, created.Profile.SkinTone, 1)
	assert.LessOrEqual(t, created.Profile.SkinTone, 6)
	assert.NotEmpty(t, created.Profile.SkinType)

	// Recommendations run in the background off the static recommender.
	require.Eventually(t, func() bool {
		analysis, err := store.GetAnalysis(context.Background(), created.ID)
		return err == nil && analysis.Status.Recommendations == "done" && len(analysis.Products) > 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCreateSkinAnalysisFromImageURL(t *testing.T) {
	photo := facePNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(photo)
	}))
	defer srv.Close()

	h := newTestHandler(storage.NewInMemoryStore())

	payload := strings.NewReader(`{"kind":"skin","image_url":"` + srv.URL + `/face.png","concerns":["redness"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created storage.Analysis
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, storage.KindSkin, created.Kind)
	assert.Equal(t, []string{"redness"}, created.Concerns)
	assert.GreaterOrEqual(t, created.Profile.SkinTone, 1)
}

func TestCreateFromImageURLRequiresURL(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/analyses", strings.NewReader(`{"kind":"skin"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "image_url is required")
}

func TestCreateRequiresPhoto(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())

	body, contentType := multipartPhoto(t, map[string]string{"kind": "skin"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "photo is required")
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())

	body, contentType := multipartPhoto(t, map[string]string{"kind": "nails"}, facePNG(t))
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateHairWithoutAnalyzer(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())

	body, contentType := multipartPhoto(t, map[string]string{"kind": "hair"}, facePNG(t))
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func requestWithID(method, target, id string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestGetAndDelete(t *testing.T) {
	store := storage.NewInMemoryStore()
	created, err := store.CreateAnalysis(context.Background(), storage.Analysis{Kind: storage.KindSkin})
	require.NoError(t, err)

	h := newTestHandler(store)

	rec := httptest.NewRecorder()
	h.Get(rec, requestWithID(http.MethodGet, "/api/analyses/"+created.ID, created.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, requestWithID(http.MethodDelete, "/api/analyses/"+created.ID, created.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, requestWithID(http.MethodGet, "/api/analyses/"+created.ID, created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductImage(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())

	payload := strings.NewReader(`{"name":"Foam Cleanser","brand":"Acme","url":"https://www.lookfantastic.com/products/acme-foam/1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/products/image", payload)
	rec := httptest.NewRecorder()
	h.ProductImage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp["image_url"], "via.placeholder.com")
	assert.Equal(t, "https://www.lookfantastic.com/products/acme-foam/1", resp["product_url"])
}

func TestProductImageRequiresIdentity(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/products/image", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ProductImage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// failingRemover stands in for a configured backend whose service is down.
type failingRemover struct{}

func (failingRemover) Remove(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("backend down")
}

func TestRemoveBackgroundUnavailableWithoutRemovers(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())

	payload := strings.NewReader(`{"imageUrl":"https://example.com/face.png"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/remove-background", payload)
	rec := httptest.NewRecorder()
	h.RemoveBackground(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProductImageProcessedUnavailableWithoutRemovers(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())

	payload := strings.NewReader(`{"name":"Foam Cleanser","brand":"Acme"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/products/image/processed", payload)
	rec := httptest.NewRecorder()
	h.ProductImageProcessed(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRemoveBackgroundRejectsNonImageURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>product page, not a picture</body></html>"))
	}))
	defer srv.Close()

	h := newTestHandler(storage.NewInMemoryStore())
	h.Remover = bgremove.NewChain(failingRemover{})

	payload := strings.NewReader(`{"imageUrl":"` + srv.URL + `/page.html"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/remove-background", payload)
	rec := httptest.NewRecorder()
	h.RemoveBackground(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveBackgroundFallsBackToOriginal(t *testing.T) {
	photo := facePNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(photo)
	}))
	defer srv.Close()

	h := newTestHandler(storage.NewInMemoryStore())
	h.Remover = bgremove.NewChain(failingRemover{})

	payload := strings.NewReader(`{"imageUrl":"` + srv.URL + `/face.png"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/remove-background", payload)
	rec := httptest.NewRecorder()
	h.RemoveBackground(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success     bool   `json:"success"`
		Base64Image string `json:"base64Image"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)

	require.True(t, strings.HasPrefix(resp.Base64Image, "data:image/png;base64,"))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(resp.Base64Image, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, photo, decoded)
}

func TestRemoveBackgroundRequiresURL(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())
	h.Remover = bgremove.NewChain(failingRemover{})

	req := httptest.NewRequest(http.MethodPost, "/api/remove-background", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.RemoveBackground(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

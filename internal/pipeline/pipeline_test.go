package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dermaCareAi/internal/bgremove"
	"dermaCareAi/internal/events"
	"dermaCareAi/internal/media"
	"dermaCareAi/internal/scrape"
	"dermaCareAi/internal/storage"
)

type stubResolver struct {
	imageURL   string
	productURL string
	err        error
	calls      int
}

func (s *stubResolver) Resolve(context.Context, scrape.Query) (scrape.Result, error) {
	s.calls++
	return scrape.Result{ImageURL: s.imageURL, ProductURL: s.productURL}, s.err
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestPipeline(t *testing.T, resolver scrape.Resolver, store storage.Store, broker *events.Broker) *Pipeline {
	t.Helper()
	uploader, err := media.NewLocalUploader(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)

	p := New(resolver, bgremove.NewChain(), uploader, store, broker)
	p.delay = func() time.Duration { return 0 }
	return p
}

func TestRunProcessesAllProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(testPNG(t))
	}))
	defer srv.Close()

	store := storage.NewInMemoryStore()
	created, err := store.CreateAnalysis(context.Background(), storage.Analysis{
		Kind: storage.KindSkin,
		Products: []storage.Product{
			{Name: "Foam Cleanser", Brand: "Acme", Category: "cleanser"},
			{Name: "Day Cream", Brand: "Acme", Category: "moisturizer"},
		},
		Status: storage.Status{Analysis: StatusDone, Recommendations: StatusDone, Images: StatusPending},
	})
	require.NoError(t, err)

	broker := events.NewBroker()
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	resolver := &stubResolver{imageURL: srv.URL + "/img.png"}
	p := newTestPipeline(t, resolver, store, broker)

	require.NoError(t, p.Run(context.Background(), created.ID))

	final, err := store.GetAnalysis(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, final.Status.Images)
	assert.Equal(t, 2, resolver.calls)

	for _, product := range final.Products {
		assert.NotEmpty(t, product.ImageKey)
		assert.True(t, strings.HasPrefix(product.ImageURL, "http://localhost/media/rec_"))
		// No remover configured, so the original image is kept.
		assert.False(t, product.Processed)
	}

	var sawProcessing, sawDone bool
	for {
		select {
		case evt := <-ch:
			switch evt.Status.Images {
			case StatusProcessing:
				sawProcessing = true
			case StatusDone:
				sawDone = true
			}
			continue
		default:
		}
		break
	}
	assert.True(t, sawProcessing)
	assert.True(t, sawDone)
}

func TestRunMarksFailedWhenNothingResolves(t *testing.T) {
	store := storage.NewInMemoryStore()
	created, err := store.CreateAnalysis(context.Background(), storage.Analysis{
		Kind:     storage.KindHair,
		Products: []storage.Product{{Name: "Ghost", Brand: "None"}},
	})
	require.NoError(t, err)

	resolver := &stubResolver{err: scrape.ErrNoImage}
	p := newTestPipeline(t, resolver, store, nil)

	require.NoError(t, p.Run(context.Background(), created.ID))

	final, err := store.GetAnalysis(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, final.Status.Images)
}

func TestRunKeepsExistingImageURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(testPNG(t))
	}))
	defer srv.Close()

	store := storage.NewInMemoryStore()
	created, err := store.CreateAnalysis(context.Background(), storage.Analysis{
		Kind:     storage.KindSkin,
		Products: []storage.Product{{Name: "Serum", Brand: "Acme", ImageURL: srv.URL + "/known.png"}},
	})
	require.NoError(t, err)

	resolver := &stubResolver{imageURL: "http://should-not-be-used"}
	p := newTestPipeline(t, resolver, store, nil)

	require.NoError(t, p.Run(context.Background(), created.ID))
	assert.Zero(t, resolver.calls)
}

func TestRunUnknownAnalysis(t *testing.T) {
	p := newTestPipeline(t, &stubResolver{}, storage.NewInMemoryStore(), nil)
	err := p.Run(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRunFillsProductURLFromResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(testPNG(t))
	}))
	defer srv.Close()

	store := storage.NewInMemoryStore()
	created, err := store.CreateAnalysis(context.Background(), storage.Analysis{
		Kind:     storage.KindSkin,
		Products: []storage.Product{{Name: "Toner", Brand: "Acme"}},
	})
	require.NoError(t, err)

	resolver := &stubResolver{
		imageURL:   srv.URL + "/toner.png",
		productURL: "https://www.lookfantastic.com/products/acme-toner/1",
	}
	p := newTestPipeline(t, resolver, store, nil)

	require.NoError(t, p.Run(context.Background(), created.ID))

	final, err := store.GetAnalysis(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://www.lookfantastic.com/products/acme-toner/1", final.Products[0].URL)
}

func TestRunSkipsPlaceholderImages(t *testing.T) {
	store := storage.NewInMemoryStore()
	created, err := store.CreateAnalysis(context.Background(), storage.Analysis{
		Kind:     storage.KindSkin,
		Products: []storage.Product{{Name: "Ghost", Brand: "None"}},
	})
	require.NoError(t, err)

	resolver := &stubResolver{imageURL: "https://via.placeholder.com/300x300?text=Ghost"}
	p := newTestPipeline(t, resolver, store, nil)

	require.NoError(t, p.Run(context.Background(), created.ID))

	final, err := store.GetAnalysis(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, final.Status.Images)
	assert.Contains(t, final.Products[0].ImageURL, "via.placeholder.com")
	assert.Empty(t, final.Products[0].ImageKey)
}

func TestDownloadSendsBrowserUserAgent(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.Write(testPNG(t))
	}))
	defer srv.Close()

	p := newTestPipeline(t, &stubResolver{}, storage.NewInMemoryStore(), nil)
	_, err := p.download(context.Background(), srv.URL+"/img.png")
	require.NoError(t, err)
	assert.Equal(t, scrape.DefaultUserAgent, agent)
}

func TestDownloadRejectsNonImageContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>not a product shot</body></html>")
	}))
	defer srv.Close()

	p := newTestPipeline(t, &stubResolver{}, storage.NewInMemoryStore(), nil)
	_, err := p.download(context.Background(), srv.URL+"/img.png")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")
}

func TestDownloadRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := newTestPipeline(t, &stubResolver{}, storage.NewInMemoryStore(), nil)
	_, err := p.download(context.Background(), srv.URL+"/missing.png")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprint(http.StatusNotFound))
}

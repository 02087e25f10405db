package analyses

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"dermaCareAi/internal/bgremove"
	"dermaCareAi/internal/events"
	"dermaCareAi/internal/hair"
	"dermaCareAi/internal/pipeline"
	"dermaCareAi/internal/recommend"
	"dermaCareAi/internal/scrape"
	"dermaCareAi/internal/skin"
	"dermaCareAi/internal/storage"
)

const (
	maxPhotoBytes = 7 * 1024 * 1024 // 7 MB

	// Budget for the full background job: recommendations plus images.
	pipelineTimeout = 10 * time.Minute
)

// Handler bundles dependencies for analysis endpoints.
type Handler struct {
	Store       storage.Store
	Broker      *events.Broker
	Hair        hair.Analyzer
	Recommender recommend.Recommender
	Pipeline    *pipeline.Pipeline
	Remover     *bgremove.Chain
	Resolver    scrape.Resolver

	// UserAgent overrides the agent string sent on image downloads.
	UserAgent string
}

// Create handles POST /api/analyses. The photo arrives as multipart
// form data, or as a JSON body referencing an image URL, together with
// the analysis kind and optional attributes.
func (h Handler) Create(w http.ResponseWriter, r *http.Request) {
	kind, photo, form, err := h.parseAnalysisRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	analysis := storage.Analysis{
		Kind:      kind,
		Concerns:  form.concerns,
		Status:    storage.Status{Analysis: pipeline.StatusProcessing, Recommendations: pipeline.StatusPending, Images: pipeline.StatusPending},
		CreatedAt: time.Now(),
	}

	switch kind {
	case storage.KindSkin:
		profile, err := skin.Analyze(photo, form.concerns)
		if err != nil {
			http.Error(w, fmt.Sprintf("could not analyze photo: %v", err), http.StatusUnprocessableEntity)
			return
		}
		analysis.Profile = storage.Profile{
			SkinTone:    int(profile.Tone),
			SkinType:    profile.Type,
			HasAcne:     profile.HasAcne,
			AcnePercent: profile.AcnePercent,
		}
	case storage.KindHair:
		if h.Hair == nil {
			http.Error(w, "hair analysis not configured", http.StatusServiceUnavailable)
			return
		}
		hairType, confidences, err := h.Hair.Classify(r.Context(), photo, form.contentType)
		if err != nil {
			log.Printf("hair classify failed: %v", err)
			http.Error(w, "could not classify hair photo", http.StatusUnprocessableEntity)
			return
		}
		analysis.Profile = storage.Profile{
			HairType:        hairType,
			HairConfidences: confidences,
			Dandruff:        form.dandruff,
			Moisture:        form.moisture,
			Density:         form.density,
		}
	}

	analysis.Status.Analysis = pipeline.StatusDone
	analysis, err = h.Store.CreateAnalysis(r.Context(), analysis)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	go h.runRecommendations(analysis)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(analysis)
}

// runRecommendations fills in products and processes their images in the
// background while clients follow progress over SSE.
func (h Handler) runRecommendations(analysis storage.Analysis) {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()

	status := analysis.Status
	status.Recommendations = pipeline.StatusProcessing
	h.publishStatus(ctx, analysis.ID, status)

	products, err := h.recommendProducts(ctx, analysis)
	if err != nil {
		log.Printf("recommendations for analysis %s failed: %v", analysis.ID, err)
		status.Recommendations = pipeline.StatusFailed
		h.publishStatus(ctx, analysis.ID, status)
		return
	}

	status.Recommendations = pipeline.StatusDone
	if _, err := h.Store.UpdateProducts(ctx, analysis.ID, products, status); err != nil {
		log.Printf("persist recommendations for analysis %s: %v", analysis.ID, err)
		return
	}
	if h.Broker != nil {
		h.Broker.Publish(events.Event{AnalysisID: analysis.ID, Status: status})
	}

	if h.Pipeline != nil {
		if err := h.Pipeline.Run(ctx, analysis.ID); err != nil {
			log.Printf("image pipeline for analysis %s: %v", analysis.ID, err)
		}
	}
}

func (h Handler) recommendProducts(ctx context.Context, analysis storage.Analysis) ([]storage.Product, error) {
	if analysis.Kind == storage.KindHair {
		recommended, err := h.Recommender.Haircare(ctx, hair.Profile{
			Type:     analysis.Profile.HairType,
			Dandruff: analysis.Profile.Dandruff,
			Moisture: analysis.Profile.Moisture,
			Density:  analysis.Profile.Density,
		})
		if err != nil {
			return nil, err
		}
		products := make([]storage.Product, 0, len(recommended))
		for _, p := range recommended {
			products = append(products, storage.Product{
				Name:     p.Name,
				Brand:    p.Brand,
				Price:    p.PriceEstimate,
				Category: p.Type,
				Reason:   p.Reason,
				ImageURL: p.ImageURL,
			})
		}
		return products, nil
	}

	recommended, err := h.Recommender.Skincare(ctx, skin.Profile{
		Tone:        skin.Tone(analysis.Profile.SkinTone),
		Type:        analysis.Profile.SkinType,
		HasAcne:     analysis.Profile.HasAcne,
		AcnePercent: analysis.Profile.AcnePercent,
		Concerns:    analysis.Concerns,
	})
	if err != nil {
		return nil, err
	}
	products := make([]storage.Product, 0, len(recommended))
	for _, p := range recommended {
		products = append(products, storage.Product{
			Name:     p.Name,
			Brand:    p.Brand,
			Price:    p.Price,
			Category: p.Category,
			URL:      p.URL,
			Reason:   p.Reason,
			ImageURL: p.ImageURL,
		})
	}
	return products, nil
}

func (h Handler) publishStatus(ctx context.Context, analysisID string, status storage.Status) {
	if err := h.Store.UpdateStatus(ctx, analysisID, status); err != nil {
		log.Printf("update status for analysis %s: %v", analysisID, err)
	}
	if h.Broker != nil {
		h.Broker.Publish(events.Event{AnalysisID: analysisID, Status: status})
	}
}

// List handles GET /api/analyses.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	analyses, err := h.Store.ListAnalyses(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(analyses)
}

// Get handles GET /api/analyses/{id}.
func (h Handler) Get(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.Store.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(analysis)
}

// Delete handles DELETE /api/analyses/{id}.
func (h Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAnalysis(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StreamEvents handles GET /api/events as server-sent events.
func (h Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if h.Broker == nil {
		http.Error(w, "events not configured", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.Broker.Subscribe()
	defer h.Broker.Unsubscribe(ch)

	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

type analysisForm struct {
	concerns    []string
	dandruff    string
	moisture    string
	density     string
	contentType string
}

func (h Handler) parseAnalysisRequest(r *http.Request) (string, []byte, analysisForm, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return h.parseJSONAnalysisRequest(r)
	}

	const maxFormMemory = maxPhotoBytes + (1 << 20)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return "", nil, analysisForm{}, fmt.Errorf("invalid multipart payload: %w", err)
	}

	kind, err := normalizeKind(r.FormValue("kind"))
	if err != nil {
		return "", nil, analysisForm{}, err
	}

	form := analysisForm{
		dandruff: strings.TrimSpace(r.FormValue("dandruff")),
		moisture: strings.TrimSpace(r.FormValue("moisture")),
		density:  strings.TrimSpace(r.FormValue("density")),
	}
	if raw := strings.TrimSpace(r.FormValue("concerns")); raw != "" {
		form.concerns = splitConcerns(raw)
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		return "", nil, analysisForm{}, fmt.Errorf("photo is required")
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		return "", nil, analysisForm{}, fmt.Errorf("read photo: %w", err)
	}
	if len(photo) > maxPhotoBytes {
		return "", nil, analysisForm{}, fmt.Errorf("photo is too large (max %d MB)", maxPhotoBytes/(1024*1024))
	}
	if len(photo) == 0 {
		return "", nil, analysisForm{}, fmt.Errorf("photo is empty")
	}

	form.contentType = header.Header.Get("Content-Type")
	if form.contentType == "" {
		form.contentType = http.DetectContentType(photo)
	}

	return kind, photo, form, nil
}

// parseJSONAnalysisRequest accepts {"image_url": ...} bodies and fetches
// the photo server-side.
func (h Handler) parseJSONAnalysisRequest(r *http.Request) (string, []byte, analysisForm, error) {
	var req struct {
		Kind     string   `json:"kind"`
		ImageURL string   `json:"image_url"`
		Concerns []string `json:"concerns"`
		Dandruff string   `json:"dandruff"`
		Moisture string   `json:"moisture"`
		Density  string   `json:"density"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", nil, analysisForm{}, fmt.Errorf("invalid request body")
	}

	kind, err := normalizeKind(req.Kind)
	if err != nil {
		return "", nil, analysisForm{}, err
	}

	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.ImageURL == "" {
		return "", nil, analysisForm{}, fmt.Errorf("image_url is required")
	}

	photo, err := h.fetchImage(r.Context(), req.ImageURL)
	if err != nil {
		return "", nil, analysisForm{}, fmt.Errorf("fetch image_url: %w", err)
	}
	if len(photo) > maxPhotoBytes {
		return "", nil, analysisForm{}, fmt.Errorf("photo is too large (max %d MB)", maxPhotoBytes/(1024*1024))
	}

	form := analysisForm{
		dandruff:    strings.TrimSpace(req.Dandruff),
		moisture:    strings.TrimSpace(req.Moisture),
		density:     strings.TrimSpace(req.Density),
		contentType: http.DetectContentType(photo),
	}
	for _, c := range req.Concerns {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			form.concerns = append(form.concerns, trimmed)
		}
	}

	return kind, photo, form, nil
}

func normalizeKind(raw string) (string, error) {
	kind := strings.ToLower(strings.TrimSpace(raw))
	if kind == "" {
		kind = storage.KindSkin
	}
	if kind != storage.KindSkin && kind != storage.KindHair {
		return "", fmt.Errorf("kind must be %q or %q", storage.KindSkin, storage.KindHair)
	}
	return kind, nil
}

func splitConcerns(raw string) []string {
	chunks := strings.Split(raw, ",")
	values := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "analysis not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// encodeImageResponse is shared by the image endpoints. The image comes
// back as a data URI so clients can drop it straight into an img tag.
func encodeImageResponse(w http.ResponseWriter, data []byte) {
	mime := http.DetectContentType(data)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"base64Image": fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)),
	})
}

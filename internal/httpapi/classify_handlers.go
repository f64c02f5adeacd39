package httpapi

import (
	"net/http"
	"strings"
	"time"

	"verisyntra.org/internal/classify"
	"verisyntra.org/internal/i18n"
	"verisyntra.org/internal/normalize"
	"verisyntra.org/internal/obs"
)

type classifyRequest struct {
	Text            string `json:"text"`
	ModelType       string `json:"model_type"`
	Language        string `json:"language,omitempty"`
	IncludeMetadata bool   `json:"include_metadata,omitempty"`
}

type classifyResponse struct {
	Prediction         string             `json:"prediction"`
	Confidence         float64            `json:"confidence"`
	CategoryID         int                `json:"category_id"`
	ModelType          string             `json:"model_type"`
	Language           string             `json:"language"`
	Probabilities      map[string]float64 `json:"probabilities,omitempty"`
	NormalizedText     string             `json:"normalized_text,omitempty"`
	DetectedCompanies  []string           `json:"detected_companies,omitempty"`
	OriginalText       string             `json:"original_text,omitempty"`
	ProcessingMetadata map[string]any     `json:"processing_metadata,omitempty"`
}

// Classify normalizes the text and runs the requested model.
func (a *API) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	a.classify(w, req)
}

// classifyFixed binds the model type for the convenience endpoints.
func (a *API) classifyFixed(mt classify.ModelType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}
		req.ModelType = string(mt)
		a.classify(w, req)
	}
}

func (a *API) classify(w http.ResponseWriter, req classifyRequest) {
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}
	lang := i18n.ParseLanguage(req.Language)
	start := time.Now()
	res, err := a.gateway.Classify(req.Text, classify.ModelType(req.ModelType))
	if err != nil {
		fail(w, err)
		return
	}
	obs.ObserveClassification(req.ModelType)

	resp := classifyResponse{
		Prediction:    res.CategoryName,
		Confidence:    res.Confidence,
		CategoryID:    res.CategoryID,
		ModelType:     req.ModelType,
		Language:      string(lang),
		Probabilities: res.Probabilities,
	}
	if req.IncludeMetadata {
		resp.NormalizedText = res.NormalizedText
		resp.DetectedCompanies = res.DetectedCompanies
		resp.OriginalText = req.Text
		resp.ProcessingMetadata = map[string]any{
			"processing_ms": time.Since(start).Milliseconds(),
			"text_length":   len([]rune(req.Text)),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type normalizeRequest struct {
	Text               string `json:"text"`
	NormalizeCompanies bool   `json:"normalize_companies"`
	NormalizePersons   bool   `json:"normalize_persons"`
	NormalizeLocations bool   `json:"normalize_locations"`
}

// Normalize runs the registry-backed text normalizer without classifying.
func (a *API) Normalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}
	res := a.normalizer.Normalize(req.Text, normalize.Options{
		Companies: req.NormalizeCompanies,
		Persons:   req.NormalizePersons,
		Locations: req.NormalizeLocations,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"original_text":      req.Text,
		"normalized_text":    res.Text,
		"detected_companies": res.Companies,
	})
}

// Health reports liveness. Public.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"name":    "verisyntra-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// ModelStatus lists the model catalogue and load state.
func (a *API) ModelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models": a.gateway.Status(),
	})
}

type preloadRequest struct {
	ModelType string `json:"model_type"`
}

// PreloadModel loads a model ahead of the first classify call. Admin only.
func (a *API) PreloadModel(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	var req preloadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := a.gateway.Preload(classify.ModelType(req.ModelType)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model_type": req.ModelType,
		"loaded":     true,
	})
}

package www

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"node.town/attacca/action"
	"node.town/attacca/config"
	"node.town/attacca/emotion"
)

type moodResponse struct {
	action.Record
	ImageURI string `json:"image_uri,omitempty"`
}

type classifyRequest struct {
	Text     string `json:"text" validate:"required,max=5000"`
	Genre    string `json:"genre" validate:"omitempty,genre"`
	Platform string `json:"platform" validate:"omitempty,platform"`
}

type recommendQuery struct {
	Label    string `validate:"required,label"`
	Genre    string `validate:"omitempty,genre"`
	Platform string `validate:"omitempty,platform"`
}

type recommendResponse struct {
	action.Recommendation
	Character string `json:"character"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data":   data,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "error",
		"message": message,
	})
}

func (s *Server) handleMoods(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, action.Records())
}

func (s *Server) handleMood(w http.ResponseWriter, r *http.Request) {
	label, ok := emotion.ParseLabel(chi.URLParam(r, "label"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown mood")
		return
	}

	rec := action.Map(label)
	out := moodResponse{Record: rec}
	if r.URL.Query().Get("embed") == "1" {
		out.ImageURI = action.ImageDataURI(rec.ImagePath(s.imagesDir), s.logger)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	req.Text = strings.TrimSpace(req.Text)

	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, strings.Join(config.FormatValidationErrors(err), ", "))
		return
	}

	platform, _ := action.ParsePlatform(req.Platform)
	reading, err := s.classifier.Classify(r.Context(), req.Text, req.Genre, platform)
	if err != nil {
		if errors.Is(err, emotion.ErrEmptyTranscript) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("classify", "error", err)
		respondError(w, http.StatusBadGateway, "classifier failed")
		return
	}
	respondJSON(w, http.StatusOK, reading)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	q := recommendQuery{
		Label:    r.URL.Query().Get("label"),
		Genre:    r.URL.Query().Get("genre"),
		Platform: r.URL.Query().Get("platform"),
	}
	if err := s.validate.Struct(q); err != nil {
		respondError(w, http.StatusBadRequest, strings.Join(config.FormatValidationErrors(err), ", "))
		return
	}

	label, _ := emotion.ParseLabel(q.Label)
	platform, _ := action.ParsePlatform(q.Platform)
	genre := q.Genre
	if genre == "" {
		genre = action.DefaultGenre
	}

	rec := action.Map(label)
	respondJSON(w, http.StatusOK, recommendResponse{
		Recommendation: action.Recommend(rec, genre, platform),
		Character:      rec.Name,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	readings, err := s.history.RecentReadings(r.Context(), limit)
	if err != nil {
		s.logger.Error("history", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	respondJSON(w, http.StatusOK, readings)
}

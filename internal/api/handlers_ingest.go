package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pulsewire/ingest/internal/ingest"
	"github.com/pulsewire/ingest/internal/store"
)

const defaultRunListLimit = 50

// RunRequest is the manual trigger body. All fields are optional.
type RunRequest struct {
	ManualRun       bool   `json:"manualRun"`
	Debug           bool   `json:"debug"`
	Query           string `json:"query"`
	TargetCategory  string `json:"targetCategory"`
	ArticlesNeeded  int    `json:"articlesNeeded"`
	UseAI           *bool  `json:"useAI"`
	ClientTimestamp string `json:"clientTimestamp"`
}

func (s *Server) handleRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RunRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
		}

		useAI := true
		if req.UseAI != nil {
			useAI = *req.UseAI
		}

		if req.Debug {
			s.logger.Info("manual ingestion trigger",
				"manual", req.ManualRun,
				"category", req.TargetCategory,
				"query", req.Query,
				"clientTimestamp", req.ClientTimestamp)
		}

		// No target category: fan out across all categories.
		if req.TargetCategory == "" {
			summary := s.runner.RunAll(r.Context())
			respondJSON(w, http.StatusOK, summary)
			return
		}

		n, err := s.runner.RunCategory(r.Context(), ingest.Params{
			Query:          req.Query,
			Category:       req.TargetCategory,
			ArticlesNeeded: req.ArticlesNeeded,
			UseAI:          useAI,
		})
		if err != nil {
			s.logger.Error("manual category run failed", "category", req.TargetCategory, "error", err)
			respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success":           false,
				"articlesGenerated": n,
				"errorsEncountered": 1,
				"message":           err.Error(),
			})
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":           true,
			"articlesGenerated": n,
			"errorsEncountered": 0,
		})
	}
}

func (s *Server) handleSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary := s.runner.RunAll(r.Context())
		respondJSON(w, http.StatusOK, summary)
	}
}

// runView is the JSON shape of a persisted run.
type runView struct {
	ID                string     `json:"id"`
	Query             string     `json:"query"`
	Source            string     `json:"source"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	ArticlesGenerated *int       `json:"articlesGenerated,omitempty"`
	Metadata          string     `json:"metadata,omitempty"`
}

func (s *Server) handleListRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := s.runs.ListRuns(r.Context(), defaultRunListLimit)
		if err != nil {
			s.logger.Error("failed to list runs", "error", err)
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, runView{
				ID:                run.ID,
				Query:             run.Query,
				Source:            run.Source,
				Status:            string(run.Status),
				CreatedAt:         run.CreatedAt,
				CompletedAt:       run.CompletedAt,
				ArticlesGenerated: run.ArticlesGenerated,
				Metadata:          run.Metadata,
			})
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"runs": views,
		})
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		articles, err := s.runs.ArticleCount(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		runCount, err := s.runs.RunCount(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"source":   store.SourceName,
			"articles": articles,
			"runs":     runCount,
		})
	}
}

func (s *Server) handleCover() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if !strings.HasSuffix(name, ".png") {
			respondError(w, http.StatusNotFound, "not found")
			return
		}
		category := strings.TrimSuffix(name, ".png")
		if category == "placeholder" {
			category = ""
		}

		img, err := s.covers.Cover(category)
		if err != nil {
			s.logger.Error("cover render failed", "category", category, "error", err)
			respondError(w, http.StatusInternalServerError, "render failed")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(img)
	}
}

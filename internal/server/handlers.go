package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/store"
)

// respondOK sends a 200 response wrapping data.
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// respondError derives the status and body from an AppError when possible.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal(err)
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body := gin.H{"code": appErr.Code, "message": appErr.Message}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(status, gin.H{"error": body})
}

type providerHealth struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.providers != nil {
		var providers []providerHealth
		anyAvailable := false
		for name, p := range s.providers.Snapshot() {
			ok := p.IsAvailable(c.Request.Context())
			anyAvailable = anyAvailable || ok
			providers = append(providers, providerHealth{Name: name, Available: ok})
		}
		resp["providers"] = providers
		if !anyAvailable {
			resp["status"] = "degraded"
		}
		if p, err := s.providers.Get(c.Request.Context()); err == nil {
			resp["preferred"] = p.Name()
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleToggle(c *gin.Context) {
	status, err := s.app.Toggle()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, status)
}

func (s *Server) handleCancel(c *gin.Context) {
	if err := s.app.Cancel(); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, s.app.Status())
}

func (s *Server) handleRecorderStatus(c *gin.Context) {
	respondOK(c, s.app.Status())
}

func (s *Server) handleTranscripts(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, apperr.InvalidInput("limit", "must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := s.store.Recent(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	respondOK(c, entries)
}

func (s *Server) handleTranscribe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, apperr.MissingField("file"))
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "voicetap_upload_*.wav")
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		respondError(c, apperr.Internal(err))
		return
	}
	if err := tmp.Close(); err != nil {
		respondError(c, apperr.Internal(err))
		return
	}

	resp, err := s.app.Transcribe(c.Request.Context(), tmp.Name())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"text":      resp.Text,
		"provider":  resp.Provider,
		"language":  resp.Language,
		"file_name": header.Filename,
	})
}

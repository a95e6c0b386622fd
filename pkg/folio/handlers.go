package folio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"

	"github.com/foliohq/folio/pkg/backup"
	"github.com/foliohq/folio/pkg/store"
)

// maxEnvelopeBytes caps restore request bodies.
const maxEnvelopeBytes = 256 << 20

// ModeResponse reports the maintenance mode.
type ModeResponse struct {
	ReadOnly bool `json:"read_only"`
}

// ErrorResponse is the body of every failed request. Kind is the error
// category (validation, not_found, integrity, read_only, resource).
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"read_only": a.IsReadOnly(),
		"time":      time.Now().Unix(),
	})
}

func (a *App) handleUserBackup(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	f, err := backup.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	owner, err := a.backups.OwnerBySlug(ctx, slug)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := a.backups.ExportUser(ctx, owner.PublicID, &buf, f); err != nil {
		respondError(w, r, err)
		return
	}
	respondEnvelope(w, f, "folio-user-"+slug, buf.Bytes())
}

func (a *App) handleUserRestore(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	f, err := requestFormat(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	owner, err := a.backups.OwnerBySlug(ctx, slug)
	if err != nil {
		respondError(w, r, err)
		return
	}
	stats, err := a.backups.ImportUser(ctx, owner.PublicID, http.MaxBytesReader(w, r.Body, maxEnvelopeBytes), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (a *App) handleSystemBackup(w http.ResponseWriter, r *http.Request) {
	f, err := backup.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := a.backups.ExportSystem(r.Context(), &buf, f); err != nil {
		respondError(w, r, err)
		return
	}
	respondEnvelope(w, f, "folio-system", buf.Bytes())
}

func (a *App) handleSystemRestore(w http.ResponseWriter, r *http.Request) {
	f, err := requestFormat(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	stats, err := a.backups.ImportSystem(r.Context(), http.MaxBytesReader(w, r.Body, maxEnvelopeBytes), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (a *App) handleGetMode(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ModeResponse{ReadOnly: a.IsReadOnly()})
}

func (a *App) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Kind: "validation"})
		return
	}
	a.SetReadOnly(req.ReadOnly)
	respondJSON(w, http.StatusOK, ModeResponse{ReadOnly: a.IsReadOnly()})
}

// requestFormat picks the decoder for a restore body: the format query
// parameter, then the Content-Type, then detection from the content.
func requestFormat(r *http.Request) (backup.Format, error) {
	if q := r.URL.Query().Get("format"); q != "" {
		return backup.ParseFormat(q)
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return backup.FormatFromContentType(ct), nil
	}
	return "", nil
}

func respondEnvelope(w http.ResponseWriter, f backup.Format, name string, data []byte) {
	filename := fmt.Sprintf("%s-%s.%s", name, time.Now().UTC().Format("20060102T150405Z"), f.Extension())
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps err onto a status code. Server-side failures are
// logged with the request.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := errorStatus(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	}
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

func errorStatus(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, store.ErrReadOnly):
		return http.StatusServiceUnavailable, "read_only"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "validation"
	case errors.Is(err, backup.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, backup.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, backup.ErrIntegrity):
		return http.StatusConflict, "integrity"
	default:
		return http.StatusInternalServerError, "resource"
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

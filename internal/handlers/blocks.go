package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/ingest"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/transport"
)

type createBlockRequest struct {
	Date   string `json:"data" validate:"required,date"`
	Time   string `json:"horario" validate:"required,clock"`
	Reason string `json:"motivo" validate:"max=200"`
}

func (s *Server) AdminListBlocks(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	from := strings.TrimSpace(r.URL.Query().Get("desde"))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	var (
		blocks []models.Block
		err    error
	)
	if date := strings.TrimSpace(r.URL.Query().Get("data")); date != "" {
		blocks, err = s.Store.Blocks.ListByDate(ctx, date)
	} else {
		blocks, err = s.Store.Blocks.List(ctx, from)
	}
	if err != nil {
		s.writeServiceError(w, log, "admin blocks list", apperr.Store("list blocks", err))
		return
	}
	transport.WriteJSON(w, http.StatusOK, blocks)
}

// AdminCreateBlock marks a slot as unavailable. The slot drops out of occupancy again once
// the block is deleted.
func (s *Server) AdminCreateBlock(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doc, err := decodeDoc(w, r)
	if err != nil {
		log.Warn("admin blocks create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	req := createBlockRequest{
		Date:   ingest.FirstString(doc, "data", "date"),
		Time:   ingest.FirstString(doc, "horario", "time"),
		Reason: ingest.FirstString(doc, "motivo", "reason"),
	}
	if normalized, ok := ingest.NormalizeDate(req.Date); ok {
		req.Date = normalized
	}
	if normalized, ok := ingest.NormalizeTime(req.Time); ok {
		req.Time = normalized
	}
	if err := s.Val.Check(req); err != nil {
		s.writeServiceError(w, log, "admin blocks create", err)
		return
	}

	block := models.Block{
		ID:        primitive.NewObjectID().Hex(),
		Date:      req.Date,
		Time:      req.Time,
		Reason:    req.Reason,
		CreatedAt: time.Now(),
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.Store.Blocks.Insert(ctx, block); err != nil {
		s.writeServiceError(w, log, "admin blocks create", err)
		return
	}
	s.Resolver.Invalidate(ctx, block.Date)
	log.Info("admin blocks create: ok", slog.String("date", block.Date), slog.String("time", block.Time))
	transport.WriteJSON(w, http.StatusCreated, block)
}

func (s *Server) AdminDeleteBlock(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	block, err := s.Store.Blocks.Get(ctx, id)
	if err != nil {
		s.writeServiceError(w, log, "admin blocks delete", err)
		return
	}
	if err := s.Store.Blocks.Delete(ctx, id); err != nil {
		s.writeServiceError(w, log, "admin blocks delete", err)
		return
	}
	s.Resolver.Invalidate(ctx, block.Date)
	log.Info("admin blocks delete: ok", slog.String("id", id), slog.String("date", block.Date))
	transport.WriteJSON(w, http.StatusOK, idResponse{ID: id})
}

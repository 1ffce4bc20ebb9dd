package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"agendamento-backend/internal/transport"
)

type slotAvailabilityResponse struct {
	Date      string `json:"data"`
	Time      string `json:"horario"`
	Available bool   `json:"disponivel"`
}

type dayAvailabilityResponse struct {
	Date     string   `json:"data"`
	Occupied []string `json:"horariosOcupados"`
	Free     []string `json:"horariosLivres"`
}

// GetAvailability answers for one slot when horario is set, otherwise lists the occupied and
// free slots of the date.
func (s *Server) GetAvailability(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("data"))
	if date == "" {
		date = strings.TrimSpace(q.Get("date"))
	}
	tm := strings.TrimSpace(q.Get("horario"))
	if date == "" {
		log.Warn("availability: missing date")
		transport.WriteError(w, http.StatusBadRequest, "invalid query", map[string]string{"data": "required"})
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if tm != "" {
		free, err := s.Resolver.IsSlotFree(ctx, date, tm)
		if err != nil {
			s.writeServiceError(w, log, "availability slot", err)
			return
		}
		log.Info("availability slot: ok", slog.String("date", date), slog.String("time", tm), slog.Bool("free", free))
		transport.WriteJSON(w, http.StatusOK, slotAvailabilityResponse{Date: date, Time: tm, Available: free})
		return
	}

	occ, err := s.Resolver.CachedOccupiedSlots(ctx, date)
	if err != nil {
		s.writeServiceError(w, log, "availability day", err)
		return
	}
	free, err := s.Resolver.FreeSlots(ctx, date, occ)
	if err != nil {
		s.writeServiceError(w, log, "availability day", err)
		return
	}
	log.Info("availability day: ok",
		slog.String("date", date),
		slog.Int("occupied", occ.Len()),
		slog.Int("free", len(free)),
	)
	transport.WriteJSON(w, http.StatusOK, dayAvailabilityResponse{Date: date, Occupied: occ.Times(), Free: free})
}

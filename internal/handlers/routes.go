package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"agendamento-backend/internal/middleware"
	"agendamento-backend/internal/transport"
)

// Register mounts every API route on api. bookingLimiter, when set, throttles the public
// booking endpoints.
func (s *Server) Register(api chi.Router, bookingLimiter *middleware.RateLimiter) {
	limit := func(next http.Handler) http.Handler { return next }
	if bookingLimiter != nil {
		limit = bookingLimiter.Middleware
	}

	api.Get("/disponibilidade", s.GetAvailability)

	api.With(limit).Post("/pagamentos", s.CreatePixPayment)
	api.Get("/pagamentos/{id}/status", s.GetPaymentStatus)
	api.Get("/pagamentos/{id}", s.GetPayment)

	api.With(limit).Post("/agendamentos", s.CreateAppointment)
	api.With(limit).Post("/agendamentos/criar-pendente", s.CreatePendingAppointment)
	api.Get("/agendamentos/{id}", s.GetAppointment)
	api.Put("/agendamentos/{id}", s.UpdateAppointment)
	api.Delete("/agendamentos/{id}", s.DeleteAppointment)

	api.Route("/admin", func(admin chi.Router) {
		admin.Post("/login", s.AdminLogin)
		admin.Post("/refresh", s.AdminRefresh)
		admin.Post("/logout", s.AdminLogout)

		admin.Group(func(protected chi.Router) {
			protected.Use(middleware.AdminAuth(s.Cfg.AdminAPIKey, s.Auth))
			protected.Post("/reset-database", s.AdminResetDatabase)
			protected.Post("/clean-duplicates", s.AdminCleanDuplicates)
			protected.Post("/normalizar-datas", s.AdminNormalizeDates)
			protected.Get("/agendamentos", s.AdminListAppointments)
			protected.Patch("/agendamentos/{id}/confirmar", s.AdminConfirmAppointment)
			protected.Get("/bloqueios", s.AdminListBlocks)
			protected.Post("/bloqueios", s.AdminCreateBlock)
			protected.Delete("/bloqueios/{id}", s.AdminDeleteBlock)
			protected.Post("/pagamentos/sincronizar", s.AdminSyncPayments)
			protected.Get("/pagamentos/{id}", s.AdminGetPayment)
		})
	})
}

func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

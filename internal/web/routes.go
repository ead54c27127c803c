package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/roll-call/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	studentsHandler := handlers.NewStudentsHandler(s.svc, s.logger)
	attendanceHandler := handlers.NewAttendanceHandler(s.svc, s.logger)
	reportsHandler := handlers.NewReportsHandler(s.svc, s.logger)

	s.router.Get("/api/health", handlers.HealthCheck)

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.HTTPErrorOnError,
		}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", reportsHandler.Dashboard)

		// Students
		r.Get("/students", studentsHandler.List)
		r.Post("/students", studentsHandler.Create)
		r.Get("/students/{id}", studentsHandler.Get)
		r.Put("/students/{id}", studentsHandler.Update)
		r.Delete("/students/{id}", studentsHandler.Delete)
		r.Post("/students/{id}/enroll", studentsHandler.Enroll)

		// Attendance
		r.Get("/attendance", attendanceHandler.List)
		r.Post("/mark_attendance", attendanceHandler.Mark)
		r.Post("/mark_multiple_attendance", attendanceHandler.MarkMultiple)
		r.Post("/recognize_faces", attendanceHandler.Recognize)

		// Reports
		r.Get("/reports", reportsHandler.Reports)
		r.Get("/export_csv", reportsHandler.Export)
		r.Get("/export_csv/download", reportsHandler.Download)
		r.Get("/gallery/audit", reportsHandler.Audit)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
}

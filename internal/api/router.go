package api

import (
	"github.com/gorilla/mux"

	"github.com/archetype-pal/lightbox-backend/internal/api/recovery"
	"github.com/archetype-pal/lightbox-backend/internal/export"
	"github.com/archetype-pal/lightbox-backend/internal/session"
	"github.com/archetype-pal/lightbox-backend/internal/state"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(core *state.Core, sessions *session.Manager, exporter *export.Exporter, isHealthy func() bool) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler(isHealthy)
	workspaceHandler := NewWorkspaceHandler(core)
	imageHandler := NewImageHandler(core)
	sessionHandler := NewSessionHandler(sessions)
	exportHandler := NewExportHandler(exporter)

	// Health
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	// State snapshot
	router.HandleFunc("/api/state", imageHandler.GetState).Methods("GET")

	// Workspaces
	router.HandleFunc("/api/workspaces", workspaceHandler.CreateWorkspace).Methods("POST")
	router.HandleFunc("/api/workspaces", workspaceHandler.ListWorkspaces).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/images", workspaceHandler.GetWorkspaceImages).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/activate", workspaceHandler.ActivateWorkspace).Methods("PUT")
	router.HandleFunc("/api/workspaces/{workspaceId}", workspaceHandler.DeleteWorkspace).Methods("DELETE")

	// Images
	router.HandleFunc("/api/images", imageHandler.LoadImages).Methods("POST")
	router.HandleFunc("/api/images/{imageId}", imageHandler.UpdateImage).Methods("PATCH")
	router.HandleFunc("/api/images/{imageId}", imageHandler.RemoveImage).Methods("DELETE")

	// Selection and viewer settings (transient)
	router.HandleFunc("/api/images/{imageId}/select", imageHandler.SelectImage).Methods("POST")
	router.HandleFunc("/api/images/{imageId}/select", imageHandler.DeselectImage).Methods("DELETE")
	router.HandleFunc("/api/selection/all", imageHandler.SelectAll).Methods("POST")
	router.HandleFunc("/api/selection", imageHandler.DeselectAll).Methods("DELETE")
	router.HandleFunc("/api/viewer", imageHandler.UpdateViewer).Methods("PUT")

	// Undo history
	router.HandleFunc("/api/history", imageHandler.SaveHistory).Methods("POST")
	router.HandleFunc("/api/history/undo", imageHandler.Undo).Methods("POST")
	router.HandleFunc("/api/history/redo", imageHandler.Redo).Methods("POST")

	// Sessions
	router.HandleFunc("/api/sessions", sessionHandler.SaveSession).Methods("POST")
	router.HandleFunc("/api/sessions", sessionHandler.ListSessions).Methods("GET")
	router.HandleFunc("/api/sessions/{sessionId}/load", sessionHandler.LoadSession).Methods("POST")
	router.HandleFunc("/api/sessions/{sessionId}", sessionHandler.DeleteSession).Methods("DELETE")

	// Export and import
	router.HandleFunc("/api/export/json", exportHandler.ExportJSON).Methods("GET")
	router.HandleFunc("/api/export/tei", exportHandler.ExportTEI).Methods("GET")
	router.HandleFunc("/api/export/pdf", exportHandler.ExportPDF).Methods("GET")
	router.HandleFunc("/api/export/raster", exportHandler.ExportRaster).Methods("GET")
	router.HandleFunc("/api/import", exportHandler.Import).Methods("POST")

	return router
}

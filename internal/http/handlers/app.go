package handlers

import (
	"encoding/json"
	"net/http"

	"veostudio/internal/infra"
	"veostudio/internal/storage"
	"veostudio/internal/videogen"
)

// App bundles the handler dependencies: the orchestration controller, the
// artifact store backing the static file routes and the service logger.
type App struct {
	Controller *videogen.Controller
	Store      *storage.FileStore
	Logger     infra.Logger
}

func NewApp(controller *videogen.Controller, store *storage.FileStore, logger infra.Logger) *App {
	return &App{Controller: controller, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

package matches

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/auth"
	"github.com/oggyb/catmatch/internal/server"
)

// Registrar ties the Matches service into the HTTP router
type Registrar struct {
	service *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{service: NewMatchesService(appCtx)}
}

func (r *Registrar) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/matches", r.list).Methods(http.MethodGet)
}

func (r *Registrar) list(w http.ResponseWriter, req *http.Request) {
	p, _ := auth.PrincipalFrom(req.Context())
	views, err := r.service.List(req.Context(), p.UID)
	if err != nil {
		server.WriteError(w, req, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"matches": views,
	})
}

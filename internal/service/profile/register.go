package profile

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/auth"
	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/repository"
	"github.com/oggyb/catmatch/internal/server"
)

// Registrar ties the Profile service into the HTTP router
type Registrar struct {
	service *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{service: NewProfileService(appCtx)}
}

func (r *Registrar) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/me", r.me).Methods(http.MethodGet)
	router.HandleFunc("/update-user", r.updateUser).Methods(http.MethodPost)
	router.HandleFunc("/cats/update", r.updateCat).Methods(http.MethodPost)
	router.HandleFunc("/cats/{catId}", r.getCat).Methods(http.MethodGet)
}

type updateUserRequest struct {
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
	PhotoURL    *string `json:"photoURL"`
}

func (r *Registrar) updateUser(w http.ResponseWriter, req *http.Request) {
	var body updateUserRequest
	if err := server.DecodeJSON(req, &body); err != nil {
		server.WriteError(w, req, err)
		return
	}

	p, _ := auth.PrincipalFrom(req.Context())
	u, err := r.service.UpdateUser(req.Context(), p.UID, repository.UserPatch{
		DisplayName: body.DisplayName,
		Email:       body.Email,
		PhotoURL:    body.PhotoURL,
	})
	if err != nil {
		server.WriteError(w, req, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

type catResponse struct {
	Success bool `json:"success"`
	*db.Cat
}

func (r *Registrar) updateCat(w http.ResponseWriter, req *http.Request) {
	var body CatInput
	if err := server.DecodeJSON(req, &body); err != nil {
		server.WriteError(w, req, err)
		return
	}

	p, _ := auth.PrincipalFrom(req.Context())
	cat, err := r.service.UpsertCat(req.Context(), p.UID, body)
	if err != nil {
		server.WriteError(w, req, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, catResponse{Success: true, Cat: cat})
}

type catWithOwnerResponse struct {
	Success bool `json:"success"`
	*CatWithOwner
}

func (r *Registrar) getCat(w http.ResponseWriter, req *http.Request) {
	cat, err := r.service.GetCat(req.Context(), mux.Vars(req)["catId"])
	if err != nil {
		server.WriteError(w, req, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, catWithOwnerResponse{Success: true, CatWithOwner: cat})
}

func (r *Registrar) me(w http.ResponseWriter, req *http.Request) {
	p, _ := auth.PrincipalFrom(req.Context())
	me, err := r.service.GetMe(req.Context(), p.UID)
	if err != nil {
		server.WriteError(w, req, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, me)
}

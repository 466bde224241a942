package explore

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/auth"
	"github.com/oggyb/catmatch/internal/db"
	svcErr "github.com/oggyb/catmatch/internal/errors"
	"github.com/oggyb/catmatch/internal/server"
)

// NoCandidatesMessage accompanies an empty candidate list.
const NoCandidatesMessage = "No more cats to swipe! Try again later or wait for new users to join."

// Registrar ties the Explore service into the HTTP router
type Registrar struct {
	service *Service
}

// NewRegistrar creates a new Registrar for the Explore service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{service: NewExploreService(appCtx)}
}

// RegisterRoutes attaches the Explore endpoints to the authenticated router
func (r *Registrar) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/cats", r.listCats).Methods(http.MethodGet)
	router.HandleFunc("/swipe", r.swipe).Methods(http.MethodPost)
}

type catsResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Cats    []db.Cat `json:"cats"`
}

func (r *Registrar) listCats(w http.ResponseWriter, req *http.Request) {
	p, _ := auth.PrincipalFrom(req.Context())
	cats, err := r.service.ListCandidates(req.Context(), p.UID)
	if err != nil {
		server.WriteError(w, req, err)
		return
	}

	resp := catsResponse{Success: true, Cats: cats}
	if len(cats) == 0 {
		resp.Message = NoCandidatesMessage
		resp.Cats = []db.Cat{}
	}
	server.WriteJSON(w, http.StatusOK, resp)
}

type swipeRequest struct {
	CatID string `json:"catId"`
	Liked *bool  `json:"liked"`
}

type swipeResponse struct {
	Success      bool   `json:"success"`
	IsMatch      bool   `json:"isMatch"`
	IsSampleUser bool   `json:"isSampleUser"`
	MatchID      string `json:"matchId,omitempty"`
}

func (r *Registrar) swipe(w http.ResponseWriter, req *http.Request) {
	var body swipeRequest
	if err := server.DecodeJSON(req, &body); err != nil {
		server.WriteError(w, req, err)
		return
	}
	if body.Liked == nil {
		server.WriteError(w, req, svcErr.InvalidArgument("liked is required"))
		return
	}

	p, _ := auth.PrincipalFrom(req.Context())
	res, err := r.service.Swipe(req.Context(), p.UID, body.CatID, *body.Liked)
	if err != nil {
		server.WriteError(w, req, err)
		return
	}

	server.WriteJSON(w, http.StatusOK, swipeResponse{
		Success:      true,
		IsMatch:      res.Outcome.IsMatch,
		IsSampleUser: res.Outcome.IsSample,
		MatchID:      res.Outcome.MatchID,
	})
}

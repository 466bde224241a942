package server

import (
	"github.com/gorilla/mux"
	"google.golang.org/grpc"
)

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// RouteRegistrar attaches a service's HTTP handlers to the authenticated
// /api subrouter.
type RouteRegistrar interface {
	RegisterRoutes(r *mux.Router)
}

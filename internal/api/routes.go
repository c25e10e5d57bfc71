package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Users
	api.HandleFunc("/users", handler.Register).Methods("POST")
	api.HandleFunc("/users/me", handler.DeleteAccount).Methods("DELETE")

	// Portfolio routes
	api.HandleFunc("/portfolios", handler.ListPortfolios).Methods("GET")
	api.HandleFunc("/portfolios", handler.CreatePortfolio).Methods("POST")
	api.HandleFunc("/portfolios/{id:[0-9]+}", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolios/{id:[0-9]+}", handler.UpdatePortfolio).Methods("PUT")
	api.HandleFunc("/portfolios/{id:[0-9]+}", handler.DeletePortfolio).Methods("DELETE")
	api.HandleFunc("/portfolios/{id:[0-9]+}/positions", handler.AddPosition).Methods("POST")

	// Position routes
	api.HandleFunc("/positions/{id:[0-9]+}", handler.EditPosition).Methods("PUT")
	api.HandleFunc("/positions/{id:[0-9]+}", handler.DeletePosition).Methods("DELETE")

	// Account-wide views
	api.HandleFunc("/analytics", handler.Analytics).Methods("GET")
	api.HandleFunc("/dashboard", handler.Dashboard).Methods("GET")
	api.HandleFunc("/currency/toggle", handler.ToggleCurrency).Methods("GET")

	// Market data
	api.HandleFunc("/stocks/{ticker}", handler.GetStock).Methods("GET")
	api.HandleFunc("/stocks/{ticker}/history", handler.GetStockHistory).Methods("GET")

	return r
}

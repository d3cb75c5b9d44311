package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avolkov/wabridge/internal/api"
)

func setupRouter(handler api.ServerInterface, mediaDir string) http.Handler {
	r := chi.NewRouter()

	// Serve stored media directly; the API's media endpoint redirects
	// here.
	r.Get("/media/*", func(w http.ResponseWriter, req *http.Request) {
		http.StripPrefix("/media/", http.FileServer(http.Dir(mediaDir))).ServeHTTP(w, req)
	})

	// Mount API routes
	r.Mount("/", api.Handler(handler))

	return r
}

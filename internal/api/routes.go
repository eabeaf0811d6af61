package api

import (
	"io/fs"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes registers the API. assetsFS, when non-nil, is served under
// /assets/ from its "assets" directory.
func SetupRoutes(handler *Handler, assetsFS fs.FS) *mux.Router {
	router := mux.NewRouter()

	router.Use(corsMiddleware)
	router.Use(sessionMiddleware)

	router.HandleFunc("/start", handler.StartProcessing).Methods("POST")
	router.HandleFunc("/progress", handler.GetProgress).Methods("GET")
	router.HandleFunc("/cancel", handler.CancelProcessing).Methods("POST")
	router.HandleFunc("/chat", handler.Chat).Methods("POST")
	router.HandleFunc("/speak", handler.Speak).Methods("POST")
	router.HandleFunc("/transcribe", handler.Transcribe).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/history", handler.GetHistory).Methods("GET")
	api.HandleFunc("/versions", handler.GetVersions).Methods("GET")

	if assetsFS != nil {
		assetsSubFS, err := fs.Sub(assetsFS, "assets")
		if err != nil {
			log.Printf("[API] Serving assets from FS root: %v", err)
			assetsSubFS = assetsFS
		}
		router.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", http.FileServer(http.FS(assetsSubFS))))
	}

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

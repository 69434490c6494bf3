package main

// Deploy as a Cloud Function (entry point RoastResume), or run locally:
//   go run ./cmd/function

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"

	"roast-backend/internal/bootstrap"
	"roast-backend/internal/shared/config"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func init() {
	functions.HTTP("RoastResume", handleRoastResume)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		log.Fatalf("funcframework.Start: %v", err)
	}
}

// handleRoastResume serves the whole router. A request to the function root
// is treated as the roast endpoint.
func handleRoastResume(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		app, initErr = bootstrap.Build(config.Load())
	})
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bootstrap failed", "code": "bootstrap_failed"})
		return
	}
	if r.URL.Path == "" || r.URL.Path == "/" {
		r.URL.Path = "/roast-resume"
	}
	app.Router.ServeHTTP(w, r)
}

// Package handler contains the HTTP and websocket handlers of the script
// runner service.
package handler

import (
	"encoding/json"
	"log"
	"net/http"
)

// Logging adds logging capabilities to incoming http requests.
func Logging(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Println("Incoming request:", r.Method, r.URL.Path, r.RemoteAddr, r.UserAgent())
			defer func() {
				logger.Println("Response returned:", r.Method, r.URL.Path, r.RemoteAddr, r.UserAgent()) // # TODO: figure out a way to log the status code
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON marshals v into the response with the given status code.
func writeJSON(w http.ResponseWriter, l *log.Logger, code int, v interface{}) {
	marshalled, err := json.Marshal(v)
	if err != nil {
		l.Printf("An error occurred while preparing output: %v\n", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(marshalled)
}

// writeError answers with a JSON error body, mirroring the message into the
// server log.
func writeError(w http.ResponseWriter, l *log.Logger, code int, msg string) {
	l.Printf("Request rejected (%d): %s\n", code, msg)
	writeJSON(w, l, code, map[string]string{"error": msg})
}

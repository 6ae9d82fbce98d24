package main

import (
	"log"
	"net/http"
	"time"
)

// loggingMiddleware logs each request with method, path, and duration
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// errorRecoveryMiddleware recovers from handler panics and returns a 500
func (s *Server) errorRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("Panic handling %s %s: %v", r.Method, r.URL.Path, rec)
				writeInternalServerErrorResponse(w, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

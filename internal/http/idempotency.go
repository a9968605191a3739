package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync/atomic"

	"saku/internal/cache"
)

const maxIdempotencyKeyLength = 255

// idempotent replays the stored response when a client repeats a request
// with the same Idempotency-Key. Requests without the header run as usual.
func (s *Server) idempotent(h ownerHandler) ownerHandler {
	return func(w http.ResponseWriter, r *http.Request, owner string) {
		key := sanitizeInput(r.Header.Get(HeaderIdempotencyKey))
		if key == "" {
			h(w, r, owner)
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			ErrorResponse(badRequest("%s is longer than %d characters", HeaderIdempotencyKey, maxIdempotencyKeyLength)).Write(w)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			ErrorResponse(badRequest("request body exceeds %d bytes", maxBodyBytes)).Write(w)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		fp := fingerprint(r, body)

		prev, pending, claimed := s.idempotency.Begin(owner, key)
		if !claimed {
			switch {
			case pending:
				MessageResponse(http.StatusConflict, codeConflict, "a request with this idempotency key is still in progress").Write(w)
			case prev.Fingerprint != fp:
				MessageResponse(http.StatusUnprocessableEntity, codeValidation, "idempotency key was already used for a different request").Write(w)
			default:
				atomic.AddInt64(&s.appMetrics.idempotentReplays, 1)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(prev.Status)
				_, _ = w.Write(prev.Body)
			}
			return
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		completed := false
		defer func() {
			if !completed {
				s.idempotency.Abandon(owner, key)
			}
		}()

		h(rec, r, owner)

		// Conflicts and server failures are worth retrying with the same key.
		if rec.status >= 500 || rec.status == http.StatusConflict {
			return
		}
		s.idempotency.Complete(owner, key, cache.Response{Status: rec.status, Body: rec.body.Bytes(), Fingerprint: fp})
		completed = true
	}
}

func fingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// recordingWriter passes the response through and keeps a copy.
type recordingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

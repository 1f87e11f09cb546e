package devserver

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldline-crm/fieldline/models"
)

const idempotencyHeader = "X-Idempotency-Key"

func (s *Server) list(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := s.store.list(collection)
		writeJSON(w, http.StatusOK, models.RemoteList{
			Records: records,
			Length:  len(records),
		})
	}
}

func (s *Server) create(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idemKey := r.Header.Get(idempotencyHeader)
		if reply, ok := s.store.replay(idemKey); ok {
			writeJSON(w, reply.status, reply.record)
			return
		}

		data, err := readEntity(r, collection)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		rec := s.store.insert(collection, data)
		s.store.remember(idemKey, idempotentReply{status: http.StatusCreated, record: rec})
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (s *Server) update(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idemKey := r.Header.Get(idempotencyHeader)
		if reply, ok := s.store.replay(idemKey); ok {
			writeJSON(w, reply.status, reply.record)
			return
		}

		data, err := readEntity(r, collection)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		serverKey := chi.URLParam(r, "serverKey")
		rec, ok := s.store.overwrite(collection, serverKey, data)
		if !ok {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}

		s.store.remember(idemKey, idempotentReply{status: http.StatusOK, record: rec})
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) remove(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idemKey := r.Header.Get(idempotencyHeader)
		if reply, ok := s.store.replay(idemKey); ok {
			w.WriteHeader(reply.status)
			return
		}

		serverKey := chi.URLParam(r, "serverKey")

		// deleting an already-deleted record is a success so a replayed
		// DELETE after a lost response converges instead of erroring
		s.store.remove(collection, serverKey)

		s.store.remember(idemKey, idempotentReply{status: http.StatusNoContent})
		w.WriteHeader(http.StatusNoContent)
	}
}

// readEntity consumes the request body and verifies it decodes as the
// collection's entity type.
func readEntity(r *http.Request, collection string) (json.RawMessage, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	entity, err := models.NewEntity(collection)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, entity); err != nil {
		return nil, err
	}

	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

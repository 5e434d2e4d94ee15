package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Makepad-fr/phonebook/internal/model"
	"github.com/Makepad-fr/phonebook/internal/server/store"
)

// AuthParam is the query parameter carrying the user key.
const AuthParam = "Authorization"

const maxCreateKeyAttempts = 8

type ctxKey struct{}

var sampleEntries = []model.Fields{
	{Title: "Mr", FirstName: "Fred", LastName: "Jones", PhoneNumber: "01962 000000"},
	{Title: "Mrs", FirstName: "Jane", LastName: "Doe", PhoneNumber: "01962 000001"},
}

type entryRequest struct {
	Title       string `json:"title" validate:"max=255"`
	FirstName   string `json:"firstName" validate:"max=255"`
	LastName    string `json:"lastName" validate:"max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"max=255"`
}

func (r entryRequest) fields() model.Fields {
	return model.Fields(r)
}

type listResponse struct {
	Entries []model.Entry `json:"entries"`
}

type userResponse struct {
	UserKey string `json:"userkey"`
}

func userKey(ctx context.Context) string {
	key, _ := ctx.Value(ctxKey{}).(string)
	return key
}

// authorize rejects requests without a known key and applies the configured delay.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get(AuthParam)
		if key == "" {
			writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "user not authorized")
			return
		}
		ok, err := s.store.UserExists(r.Context(), key)
		if err != nil {
			s.log.Error("[API] user lookup failed", "err", err)
			writeError(w, http.StatusInternalServerError, errCodeInternal, "internal server error")
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "user not authorized")
			return
		}
		if err := s.delay(r.Context()); err != nil {
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, key)))
	})
}

func (s *Server) delay(ctx context.Context) error {
	lo, hi := s.opts.DelayMin, s.opts.DelayMax
	if hi <= 0 {
		return nil
	}
	d := lo
	if span := hi - lo; span > 0 {
		d += rand.N(span + 1)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	for range maxCreateKeyAttempts {
		key, err := s.newKey()
		if err != nil {
			s.internalError(w, "generate key", err)
			return
		}
		taken, err := s.store.UserExists(r.Context(), key)
		if err != nil {
			s.internalError(w, "lookup user", err)
			return
		}
		if taken {
			continue
		}
		if err := s.store.CreateUser(r.Context(), key); err != nil {
			s.internalError(w, "create user", err)
			return
		}
		writeJSON(w, http.StatusCreated, userResponse{UserKey: key})
		return
	}
	s.internalError(w, "create user", errors.New("no free key found"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	key := userKey(r.Context())
	entries, err := s.store.ListEntries(r.Context(), key)
	if err != nil {
		s.internalError(w, "list entries", err)
		return
	}
	if len(entries) == 0 {
		if entries, err = s.seed(r.Context(), key); err != nil {
			s.internalError(w, "seed entries", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, listResponse{Entries: entries})
}

// seed stores the sample entries for key and returns the new list.
func (s *Server) seed(ctx context.Context, key string) ([]model.Entry, error) {
	for _, f := range sampleEntries {
		if _, err := s.store.CreateEntry(ctx, key, f); err != nil {
			return nil, err
		}
	}
	return s.store.ListEntries(ctx, key)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}
	e, err := s.store.GetEntry(r.Context(), userKey(r.Context()), id)
	if err != nil {
		s.storeError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeEntry(w, r)
	if !ok {
		return
	}
	id, err := s.store.CreateEntry(r.Context(), userKey(r.Context()), req.fields())
	if err != nil {
		s.internalError(w, "create entry", err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+strconv.FormatInt(id, 10))
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}
	req, ok := s.decodeEntry(w, r)
	if !ok {
		return
	}
	if err := s.store.UpdateEntry(r.Context(), userKey(r.Context()), id, req.fields()); err != nil {
		s.storeError(w, "update entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteEntry(r.Context(), userKey(r.Context()), id); err != nil {
		s.storeError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, "invalid entry id "+strconv.Quote(raw))
		return 0, false
	}
	return id, true
}

func (s *Server) decodeEntry(w http.ResponseWriter, r *http.Request) (entryRequest, bool) {
	var req entryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, "invalid JSON body: "+err.Error())
		return req, false
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, err.Error())
		return req, false
	}
	return req, true
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, errCodeNotFound, "entry not found for given id")
		return
	}
	s.internalError(w, op, err)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error("[API] "+op+" failed", "err", err)
	writeError(w, http.StatusInternalServerError, errCodeInternal, "internal server error")
}

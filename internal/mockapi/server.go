// Package mockapi is an in-memory implementation of the task backend's HTTP surface.
// It backs the mock-server command and the client and view tests.
package mockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tgienger/todochat/internal/models"
)

// Request is one recorded incoming request
type Request struct {
	Method        string
	Path          string
	Body          string
	Authorization string
}

type account struct {
	user models.User
	hash []byte
}

type failure struct {
	method string
	path   string
	status int
	detail string
}

type claims struct {
	UserID int64 `json:"user_id"`
	Epoch  int   `json:"epoch"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// Server holds all backend state behind one mutex
type Server struct {
	mu     sync.Mutex
	secret []byte
	log    *zap.Logger
	router *mux.Router
	now    func() time.Time

	accounts      map[int64]*account
	byEmail       map[string]int64
	tasks         map[int64]*models.Task
	conversations map[int64]int64 // conversation id -> owner

	nextUserID int64
	nextTaskID int64
	nextConvID int64
	epoch      int

	requests []Request
	failures []failure
}

type Option func(*Server)

func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

func New(opts ...Option) *Server {
	s := &Server{
		secret:        []byte("mock-secret"),
		log:           zap.NewNop(),
		now:           time.Now,
		accounts:      make(map[int64]*account),
		byEmail:       make(map[string]int64),
		tasks:         make(map[int64]*models.Task),
		conversations: make(map[int64]int64),
		nextUserID:    1,
		nextTaskID:    1,
		nextConvID:    1,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/auth/signup", s.signup).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.login).Methods(http.MethodPost)

	u := r.PathPrefix("/api/{userID:[0-9]+}").Subrouter()
	u.Use(s.authorize)
	u.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	u.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	u.HandleFunc("/tasks/{taskID:[0-9]+}", s.getTask).Methods(http.MethodGet)
	u.HandleFunc("/tasks/{taskID:[0-9]+}", s.updateTask).Methods(http.MethodPut)
	u.HandleFunc("/tasks/{taskID:[0-9]+}", s.deleteTask).Methods(http.MethodDelete)
	u.HandleFunc("/tasks/{taskID:[0-9]+}/complete", s.toggleTask).Methods(http.MethodPatch)
	u.HandleFunc("/chat", s.chat).Methods(http.MethodPost)

	s.router = r
	return s
}

// ServeHTTP records the request, applies any injected failure, then routes it
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		Body:          string(body),
		Authorization: r.Header.Get("Authorization"),
	})
	var injected *failure
	for i, f := range s.failures {
		if f.method == r.Method && f.path == r.URL.Path {
			injected = &f
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.log.Debug("mock request", zap.String("method", r.Method), zap.String("path", r.URL.Path))

	if injected != nil {
		writeError(w, injected.status, injected.detail)
		return
	}
	s.router.ServeHTTP(w, r)
}

// FailNext makes the next request matching method and path fail with status and detail
func (s *Server) FailNext(method, path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, path: path, status: status, detail: detail})
}

// Requests returns a copy of everything received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// ResetRequests forgets the recorded requests
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// ExpireTokens invalidates every token issued so far
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
}

// SetNextConversationID sets the id given to the next new conversation
func (s *Server) SetNextConversationID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextConvID = id
}

// Tasks returns the stored tasks of a user ordered by id
func (s *Server) Tasks(userID int64) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userTasks(userID)
}

func (s *Server) userTasks(userID int64) []models.Task {
	out := []models.Task{}
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}

	// Mock backend: the lowest cost keeps signups fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not hash password")
		return
	}

	acct := &account{
		user: models.User{ID: s.nextUserID, Email: email, Name: req.Name},
		hash: hash,
	}
	s.nextUserID++
	s.accounts[acct.user.ID] = acct
	s.byEmail[email] = acct.user.ID

	s.respondWithToken(w, http.StatusCreated, acct.user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(req.Email))]
	if !ok || bcrypt.CompareHashAndPassword(s.accounts[id].hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	s.respondWithToken(w, http.StatusOK, s.accounts[id].user)
}

// respondWithToken must be called with s.mu held
func (s *Server) respondWithToken(w http.ResponseWriter, status int, user models.User) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: user.ID,
		Epoch:  s.epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(s.now().Add(7 * 24 * time.Hour)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, status, models.AuthResponse{AccessToken: signed, TokenType: "bearer", User: user})
}

// authorize resolves the bearer token and checks it matches the path's user id
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header missing")
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		var c claims
		_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		s.mu.Lock()
		epoch := s.epoch
		_, known := s.accounts[c.UserID]
		s.mu.Unlock()

		if err != nil || c.Epoch != epoch || !known {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		pathID, _ := strconv.ParseInt(mux.Vars(r)["userID"], 10, 64)
		if pathID != c.UserID {
			writeError(w, http.StatusForbidden, "Access denied: user_id mismatch")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c.UserID)))
	})
}

func userIDFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.userTasks(userIDFrom(r)))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in models.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if in.Title == "" {
		writeValidationError(w, "Field required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	task := s.addTask(userIDFrom(r), in.Title, in.Description)
	writeJSON(w, http.StatusCreated, task)
}

// addTask must be called with s.mu held
func (s *Server) addTask(userID int64, title, description string) models.Task {
	now := models.Timestamp{Time: s.now().UTC()}
	task := &models.Task{
		ID:          s.nextTaskID,
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextTaskID++
	s.tasks[task.ID] = task
	return *task
}

// lookupTask must be called with s.mu held
func (s *Server) lookupTask(w http.ResponseWriter, r *http.Request) (*models.Task, bool) {
	id, _ := strconv.ParseInt(mux.Vars(r)["taskID"], 10, 64)
	task, ok := s.tasks[id]
	if !ok || task.UserID != userIDFrom(r) {
		writeError(w, http.StatusNotFound, "Task not found")
		return nil, false
	}
	return task, true
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.lookupTask(w, r); ok {
		writeJSON(w, http.StatusOK, task)
	}
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var upd models.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}
	if upd.Title != nil {
		task.Title = *upd.Title
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.Completed != nil {
		task.Completed = *upd.Completed
	}
	task.UpdatedAt = models.Timestamp{Time: s.now().UTC()}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}
	delete(s.tasks, task.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}
	task.Completed = !task.Completed
	task.UpdatedAt = models.Timestamp{Time: s.now().UTC()}
	writeJSON(w, http.StatusOK, task)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidationError mirrors FastAPI's 422 body shape
func writeValidationError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{"loc": []string{"body", "title"}, "msg": msg, "type": "missing"}},
	})
}

// Package apitest runs an in-memory imitation of the Briefly API for
// tests. It speaks the same routes, envelope and error bodies as the real
// server, issues real HS256 tokens, and lets tests inject failures.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/briefly/internal/auth"
	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/dmitrijs2005/briefly/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TokenValidity matches the lifetime of tokens issued by the real API.
const TokenValidity = 30 * 24 * time.Hour

type user struct {
	models.User
	password string
}

type share struct {
	summaryID   string
	recipientID string
	sharedAt    time.Time
}

type file struct {
	name        string
	contentType string
	data        []byte
}

type failure struct {
	status int
	detail string
}

// Server is a fake Briefly API. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server
	secret []byte

	mu        sync.Mutex
	seq       int
	users     map[string]*user // by email
	summaries []*models.Summary
	shares    []share
	files     map[string]file
	failures  map[string][]failure
	hits      map[string]int
	gates     map[string][]chan struct{}
}

// New starts a fake server that is shut down when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:   []byte("apitest-secret"),
		users:    make(map[string]*user),
		files:    make(map[string]file),
		failures: make(map[string][]failure),
		hits:     make(map[string]int),
		gates:    make(map[string][]chan struct{}),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Post("/user/create", s.createUser)
	r.Post("/user/verify", s.verifyUser)
	r.Get("/download/{fileID}", s.download)

	r.Group(func(r chi.Router) {
		r.Use(s.bearer)

		r.Get("/summaries/{userID}", s.listOwned)
		r.Get("/user/{userID}/shared-summaries", s.listShared)
		r.Post("/summary/create", s.createFromText)
		r.Post("/summary/upload", s.createFromFile)
		r.Post("/summary/share", s.share)
		r.Post("/summary/regenerate/{id}", s.regenerate)
		r.Get("/summary/{id}", s.fetch)
		r.Delete("/summary/{id}", s.delete)
	})
	return r
}

// record counts requests by "METHOD pattern", holds gated requests and
// applies injected failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + s.patternFor(r)

		s.mu.Lock()
		s.hits[key]++
		var f *failure
		if q := s.failures[key]; len(q) > 0 {
			f = &q[0]
			s.failures[key] = q[1:]
		}
		var gate chan struct{}
		if q := s.gates[key]; len(q) > 0 {
			gate = q[0]
			s.gates[key] = q[1:]
		}
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if f != nil {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var patterns = []string{
	"/user/create",
	"/user/verify",
	"/download/{fileID}",
	"/summaries/{userID}",
	"/user/{userID}/shared-summaries",
	"/summary/create",
	"/summary/upload",
	"/summary/share",
	"/summary/regenerate/{id}",
	"/summary/{id}",
}

// patternFor maps a request path to its route pattern so hits and failures
// are keyed the same way regardless of ids.
func (s *Server) patternFor(r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	for _, p := range patterns {
		pp := strings.Split(strings.Trim(p, "/"), "/")
		if len(pp) != len(parts) {
			continue
		}
		ok := true
		for i := range pp {
			if strings.HasPrefix(pp[i], "{") {
				continue
			}
			if pp[i] != parts[i] {
				ok = false
				break
			}
		}
		if ok {
			return p
		}
	}
	return r.URL.Path
}

func (s *Server) bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(h, common.BearerPrefix) {
			writeDetail(w, http.StatusForbidden, "Not authenticated")
			return
		}
		if _, err := auth.VerifyToken(strings.TrimPrefix(h, common.BearerPrefix), s.secret); err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FailNext makes the next request matching "METHOD pattern" (for example
// "GET /summaries/{userID}") fail with status and detail.
func (s *Server) FailNext(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, detail: detail})
}

// Hold blocks the next request matching route until release is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[route] = append(s.gates[route], ch)
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Hits returns how many requests matched route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// AddUser registers a user directly and returns its id.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{User: models.User{ID: s.nextID("user"), Email: email}, password: password}
	s.users[email] = u
	return u.ID
}

// Token issues a token for userID that expires after validity.
func (s *Server) Token(userID string, validity time.Duration) string {
	tok, err := auth.GenerateToken(userID, s.secret, validity)
	if err != nil {
		panic(err)
	}
	return tok
}

// AddSummary stores a summary, assigning an id when it has none, and
// returns the stored copy.
func (s *Server) AddSummary(sum models.Summary) models.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sum.ID == "" {
		sum.ID = s.nextID("sum")
	}
	if sum.CreatedAt == "" {
		sum.CreatedAt = time.Now().UTC().Format(time.DateTime)
	}
	s.summaries = append(s.summaries, &sum)
	return sum
}

// AddFile stores a downloadable file and returns its id.
func (s *Server) AddFile(name, contentType string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("file")
	s.files[id] = file{name: name, contentType: contentType, data: slices.Clone(data)}
	return id
}

// Summary returns the stored summary with id.
func (s *Server) Summary(id string) (models.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sum := s.find(id); sum != nil {
		return *sum, true
	}
	return models.Summary{}, false
}

func (s *Server) find(id string) *models.Summary {
	for _, sum := range s.summaries {
		if sum.ID == id {
			return sum
		}
	}
	return nil
}

func (s *Server) userByID(id string) *user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func writeOK(w http.ResponseWriter, status int, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "result": result})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"detail": []map[string]any{{"type": "value_error", "msg": msg}},
	})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeValidation(w, "JSON decode error")
		return
	}
	if reg.Password != "" && reg.ConfirmPassword != "" && reg.Password != reg.ConfirmPassword {
		writeValidation(w, "Value error, Passwords do not match")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[reg.Email]; ok {
		writeDetail(w, http.StatusConflict, "User Already Exists")
		return
	}
	u := &user{
		User: models.User{
			ID:        s.nextID("user"),
			Email:     reg.Email,
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
			Phone:     reg.Phone,
			CreatedAt: time.Now().UTC().Format(time.DateTime),
		},
		password: reg.Password,
	}
	s.users[reg.Email] = u
	writeOK(w, http.StatusCreated, models.RegisteredUser{Message: "User created successfully", UserID: u.ID})
}

func (s *Server) verifyUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "JSON decode error")
		return
	}

	s.mu.Lock()
	u, ok := s.users[in.Email]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Account Does Not Exist")
		return
	}
	if u.password != in.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect password")
		return
	}

	profile := u.User
	writeOK(w, http.StatusOK, models.Credentials{Token: s.Token(u.ID, TokenValidity), User: &profile})
}

func (s *Server) listOwned(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	s.mu.Lock()
	out := []models.Summary{}
	for i := len(s.summaries) - 1; i >= 0; i-- {
		if s.summaries[i].UserID == userID {
			out = append(out, *s.summaries[i])
		}
	}
	s.mu.Unlock()

	writeOK(w, http.StatusOK, out)
}

func (s *Server) listShared(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	s.mu.Lock()
	out := []models.Summary{}
	for i := len(s.shares) - 1; i >= 0; i-- {
		sh := s.shares[i]
		if sh.recipientID != userID {
			continue
		}
		sum := s.find(sh.summaryID)
		if sum == nil {
			continue
		}
		sender := s.userByID(sum.UserID)
		if sender == nil {
			continue
		}
		item := *sum
		item.UserID = ""
		item.SharedBy = sender.Email
		item.SharedAt = sh.sharedAt.Format("January 02, 2006")
		out = append(out, item)
	}
	s.mu.Unlock()

	writeOK(w, http.StatusOK, out)
}

// summarize imitates the backend's model call: the first line becomes the
// title and the output quotes the input.
func summarize(typ models.SummaryType, input string) (title, output string) {
	title = strings.TrimSpace(strings.SplitN(input, "\n", 2)[0])
	if len(title) > 40 {
		title = title[:40]
	}
	if title == "" {
		title = "Untitled Summary"
	}
	return title, fmt.Sprintf("%s summary: %s", typ, strings.TrimSpace(input))
}

func (s *Server) createFromText(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID      string `json:"userId"`
		Type        string `json:"type"`
		UploadType  string `json:"uploadType"`
		InitialData string `json:"initialData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.UserID == "" || in.Type == "" {
		writeValidation(w, "Field required")
		return
	}

	typ := models.SummaryType(in.Type)
	title, output := summarize(typ, in.InitialData)
	sum := s.AddSummary(models.Summary{
		UserID:      in.UserID,
		Title:       title,
		Type:        typ,
		UploadType:  models.UploadType(in.UploadType),
		InitialData: in.InitialData,
		OutputData:  output,
	})
	writeOK(w, http.StatusCreated, models.CreatedSummary{Message: "Summary created successfully", SummaryID: sum.ID})
}

func (s *Server) createFromFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeValidation(w, "Field required")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeValidation(w, "Field required")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	fileID := s.AddFile(hdr.Filename, hdr.Header.Get("Content-Type"), data)
	typ := models.SummaryType(r.FormValue("type"))
	title, output := summarize(typ, string(data))
	sum := s.AddSummary(models.Summary{
		UserID:      r.FormValue("userId"),
		Title:       title,
		Type:        typ,
		UploadType:  models.UploadType(r.FormValue("uploadType")),
		InitialData: string(data),
		OutputData:  output,
		FileName:    hdr.Filename,
		FileID:      fileID,
	})
	writeOK(w, http.StatusCreated, models.CreatedSummary{
		Message:   "Summary created successfully",
		SummaryID: sum.ID,
		FileID:    fileID,
	})
}

func (s *Server) fetch(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.Summary(chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Summary not found")
		return
	}
	writeOK(w, http.StatusOK, sum)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.summaries, func(sum *models.Summary) bool { return sum.ID == id })
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Summary not found")
		return
	}
	if fid := s.summaries[i].FileID; fid != "" {
		delete(s.files, fid)
	}
	s.summaries = slices.Delete(s.summaries, i, i+1)
	writeOK(w, http.StatusCreated, map[string]string{"message": "Summary deleted successfully"})
}

func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	var feedback string
	if err := json.NewDecoder(r.Body).Decode(&feedback); err != nil {
		writeValidation(w, "Input should be a valid string")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sum := s.find(chi.URLParam(r, "id"))
	if sum == nil {
		writeDetail(w, http.StatusNotFound, "Summary not found")
		return
	}
	sum.Title, sum.OutputData = summarize(sum.Type, sum.InitialData)
	sum.OutputData += "\n\nRevised per feedback: " + feedback
	writeOK(w, http.StatusCreated, map[string]string{"message": "Summary regenerated successfully"})
}

func (s *Server) share(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SummaryID string `json:"summary_id"`
		Recipient string `json:"recipient"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "Field required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sum := s.find(in.SummaryID)
	if sum == nil {
		writeDetail(w, http.StatusNotFound, "Summary not found")
		return
	}
	recipient, ok := s.users[in.Recipient]
	if !ok {
		writeDetail(w, http.StatusNotFound, "The recipient must be a registered user of Briefly.")
		return
	}
	if recipient.ID == sum.UserID {
		writeDetail(w, http.StatusBadRequest, "Failed to share summary: 400: You cannot share a summary with yourself.")
		return
	}
	for _, sh := range s.shares {
		if sh.summaryID == sum.ID && sh.recipientID == recipient.ID {
			writeOK(w, http.StatusOK, map[string]string{"message": "Summary already shared with " + in.Recipient})
			return
		}
	}
	s.shares = append(s.shares, share{summaryID: sum.ID, recipientID: recipient.ID, sharedAt: time.Now()})
	writeOK(w, http.StatusOK, map[string]string{"message": "Summary shared successfully with " + in.Recipient})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	f, ok := s.files[chi.URLParam(r, "fileID")]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "File not found")
		return
	}

	ct := f.contentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.name))
	_, _ = w.Write(f.data)
}

// Package apitest runs an in-process stand-in for the Inventario API so the
// client and the forms can be exercised end to end in tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	DemoAdminEmail    = "admin@inventario.dev"
	DemoAdminPassword = "admin123"
	DemoUserEmail     = "user@inventario.dev"
	DemoUserPassword  = "user123"
)

const (
	DetailBadCredentials = "Incorrect email or password."
	DetailBadToken       = "Invalid or expired token."
	DetailAdminOnly      = "Not authorized (admin required)."
	DetailEmailTaken     = "That email is already registered."
	DetailNotFound       = "Product not found."
	DetailSKUTaken       = "SKU already exists."
)

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

type Product struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	Location  *string `json:"location"`
	CreatedAt int64   `json:"created_at"`
}

// Request is one call the server received.
type Request struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
	Status        int
}

type override struct {
	status int
	body   string
}

type Server struct {
	*httptest.Server

	jwt      *JWTManager
	validate *validator.Validate

	mu        sync.Mutex
	users     []User
	products  []Product
	nextID    int64
	requests  []Request
	overrides map[string]override
}

func NewServer() *Server {
	s := &Server{
		jwt:       NewJWTManager("apitest-secret", 2*time.Hour),
		validate:  validator.New(),
		nextID:    1,
		overrides: map[string]override{},
	}

	s.AddUser("Demo Admin", DemoAdminEmail, DemoAdminPassword, "admin")
	s.AddUser("Demo User", DemoUserEmail, DemoUserPassword, "user")

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.record)
	r.Use(s.applyOverrides)

	r.Post("/auth/login", s.login)
	r.Post("/auth/register", s.register)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireToken)
		pr.Get("/auth/me", s.me)
		pr.Get("/products", s.listProducts)
		pr.Get("/products/{id}", s.getProduct)

		pr.Group(func(ar chi.Router) {
			ar.Use(requireAdmin)
			ar.Post("/admin/users", s.createUser)
			ar.Post("/products", s.createProduct)
			ar.Put("/products/{id}", s.updateProduct)
			ar.Delete("/products/{id}", s.deleteProduct)
		})
	})

	s.Server = httptest.NewServer(r)
	return s
}

// AddUser registers an account and returns it.
func (s *Server) AddUser(name, email, password, role string) User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := User{
		ID:           s.nextID,
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         role,
	}
	s.nextID++
	s.users = append(s.users, u)
	return u
}

// AddProduct stores p as is. A zero ID gets the next free one.
func (s *Server) AddProduct(p Product) Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.nextID
		s.nextID++
	}
	s.products = append(s.products, p)
	return p
}

// Products returns a copy of the stored products.
func (s *Server) Products() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Product{}, s.products...)
}

// Token issues a valid bearer token for the account with the given email.
func (s *Server) Token(email string) string {
	u, ok := s.userByEmail(email)
	if !ok {
		panic("apitest: unknown user " + email)
	}
	token, err := s.jwt.Generate(u)
	if err != nil {
		panic(err)
	}
	return token
}

// Override makes every method+path request answer with status and raw body.
func (s *Server) Override(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = override{status: status, body: body}
}

// Requests returns the calls received for path, or all calls when path is empty.
func (s *Server) Requests(path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Request
	for _, r := range s.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) HasUser(email string) bool {
	_, ok := s.userByEmail(email)
	return ok
}

func (s *Server) userByEmail(email string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

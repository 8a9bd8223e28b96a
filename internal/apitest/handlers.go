package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

type loginIn struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type createUserIn struct {
	Name     string `json:"name" validate:"min=2,max=60"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

type registerIn struct {
	Name     string `json:"name" validate:"min=2,max=60"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6,max=128"`
}

type productIn struct {
	Name     string  `json:"name" validate:"min=2,max=120"`
	SKU      string  `json:"sku" validate:"min=2,max=40"`
	Quantity int     `json:"quantity" validate:"gte=0"`
	Location *string `json:"location" validate:"omitempty,max=80"`
}

type userOut struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func safeUser(u User) userOut {
	return userOut{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// decode reads the JSON body into v and validates it. It writes the error
// response itself and reports whether the handler should go on.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, []validationIssue{{
			Loc: []string{"body"}, Msg: "Invalid JSON body", Type: "json_invalid",
		}})
		return false
	}

	err := s.validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}

	issues := make([]validationIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, validationIssue{
			Loc:  []string{"body", strings.ToLower(fe.Field())},
			Msg:  "Value error, " + strings.ToLower(fe.Field()) + " failed " + fe.Tag(),
			Type: fe.Tag(),
		})
	}
	writeDetail(w, http.StatusUnprocessableEntity, issues)
	return false
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginIn
	if !s.decode(w, r, &req) {
		return
	}

	u, ok := s.userByEmail(req.Email)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, DetailBadCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		writeDetail(w, http.StatusUnauthorized, DetailBadCredentials)
		return
	}

	token, err := s.jwt.Generate(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  safeUser(u),
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := r.Context().Value(claimsKey).(*Claims)
	writeJSON(w, http.StatusOK, map[string]any{"user": claims})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	products := append([]Product{}, s.products...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, products)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserIn
	if !s.decode(w, r, &req) {
		return
	}

	if s.HasUser(req.Email) {
		writeDetail(w, http.StatusConflict, DetailEmailTaken)
		return
	}

	role := req.Role
	if role == "" {
		role = "user"
	}

	u := s.AddUser(req.Name, req.Email, req.Password, role)

	writeJSON(w, http.StatusCreated, safeUser(u))
}

// register always makes an admin, like the real API does for now.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerIn
	if !s.decode(w, r, &req) {
		return
	}

	if s.HasUser(req.Email) {
		writeDetail(w, http.StatusConflict, DetailEmailTaken)
		return
	}

	u := s.AddUser(req.Name, req.Email, req.Password, "admin")
	writeJSON(w, http.StatusCreated, safeUser(u))
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	idx := s.productIndex(id)
	var p Product
	if idx >= 0 {
		p = s.products[idx]
	}
	s.mu.Unlock()

	if idx < 0 {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productIn
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	if s.skuTaken(req.SKU, 0) {
		s.mu.Unlock()
		writeDetail(w, http.StatusConflict, DetailSKUTaken)
		return
	}
	p := req.apply(Product{ID: s.nextID, CreatedAt: time.Now().Unix()})
	s.nextID++
	s.products = append(s.products, p)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req productIn
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(id)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	if s.skuTaken(req.SKU, id) {
		writeDetail(w, http.StatusConflict, DetailSKUTaken)
		return
	}

	s.products[idx] = req.apply(s.products[idx])
	writeJSON(w, http.StatusOK, s.products[idx])
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	idx := s.productIndex(id)
	if idx >= 0 {
		s.products = append(s.products[:idx], s.products[idx+1:]...)
	}
	s.mu.Unlock()

	if idx < 0 {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (in productIn) apply(p Product) Product {
	p.Name = strings.TrimSpace(in.Name)
	p.SKU = strings.TrimSpace(in.SKU)
	p.Quantity = in.Quantity
	p.Location = nil
	if in.Location != nil && *in.Location != "" {
		loc := strings.TrimSpace(*in.Location)
		p.Location = &loc
	}
	return p
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, []validationIssue{{
			Loc: []string{"path", "product_id"}, Msg: "Input should be a valid integer", Type: "int_parsing",
		}})
		return 0, false
	}
	return id, true
}

// productIndex and skuTaken expect s.mu to be held.
func (s *Server) productIndex(id int64) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) skuTaken(sku string, except int64) bool {
	for _, p := range s.products {
		if p.ID != except && strings.EqualFold(p.SKU, strings.TrimSpace(sku)) {
			return true
		}
	}
	return false
}

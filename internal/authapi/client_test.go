package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventario/internal/api/dto"
	"inventario/internal/apitest"
	"inventario/internal/metrics"
	"inventario/internal/session"
)

func newClient(t *testing.T, srv *apitest.Server, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return client
}

func adminSession(srv *apitest.Server) session.Session {
	return session.Session{
		Token: srv.Token(apitest.DemoAdminEmail),
		User:  session.User{Email: apitest.DemoAdminEmail, Role: "admin"},
	}
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "localhost:8000", "://nope"} {
		_, err := NewClient(raw)
		assert.Error(t, err, raw)
	}
}

func TestNewClientKeepsBasePath(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api/")
	require.NoError(t, err)

	_, err = client.Login(context.Background(), dto.LoginRequest{Email: "a@b.c", Password: "secret1"})
	require.Error(t, err)

	reqs := srv.Requests("/api/auth/login")
	assert.Len(t, reqs, 1)
}

func TestLogin(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	m := metrics.New()
	client := newClient(t, srv, WithMetrics(m))

	resp, err := client.Login(context.Background(), dto.LoginRequest{
		Email:    apitest.DemoAdminEmail,
		Password: apitest.DemoAdminPassword,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Demo Admin", resp.User.Name)
	assert.Equal(t, "admin", resp.User.Role)

	reqs := srv.Requests("/auth/login")
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Empty(t, reqs[0].Authorization)

	var body map[string]string
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, map[string]string{"email": apitest.DemoAdminEmail, "password": apitest.DemoAdminPassword}, body)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("/auth/login", "200")))
}

func TestLoginBadCredentials(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	_, err := newClient(t, srv).Login(context.Background(), dto.LoginRequest{
		Email:    apitest.DemoAdminEmail,
		Password: "wrong-password",
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, apitest.DetailBadCredentials, apiErr.Detail)
	assert.Equal(t, apitest.DetailBadCredentials, apiErr.Message("fallback"))
}

func TestCreateUser(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	client := newClient(t, srv)
	sess := adminSession(srv)

	created, err := client.CreateUser(context.Background(), sess, dto.CreateUserRequest{
		Name: "Nora", Email: "nora@inventario.dev", Password: "secret1", Role: "user",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "nora@inventario.dev", created.Email)
	assert.Equal(t, "user", created.Role)
	assert.True(t, srv.HasUser("nora@inventario.dev"))

	reqs := srv.Requests("/admin/users")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+sess.Token, reqs[0].Authorization)

	_, err = client.CreateUser(context.Background(), sess, dto.CreateUserRequest{
		Name: "Nora", Email: "nora@inventario.dev", Password: "secret1", Role: "user",
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, apitest.DetailEmailTaken, apiErr.Detail)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestCreateUserNoContent(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Override(http.MethodPost, "/admin/users", http.StatusNoContent, "")

	created, err := newClient(t, srv).CreateUser(context.Background(), adminSession(srv), dto.CreateUserRequest{
		Name: "Nora", Email: "nora@inventario.dev", Password: "secret1", Role: "user",
	})
	require.NoError(t, err)
	assert.Nil(t, created)
}

func TestCreateUserUnauthorized(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	sess := session.Session{Token: "forged", User: session.User{Role: "admin"}}
	_, err := newClient(t, srv).CreateUser(context.Background(), sess, dto.CreateUserRequest{
		Name: "Nora", Email: "nora@inventario.dev", Password: "secret1", Role: "user",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateUserForbiddenForNonAdmin(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	sess := session.Session{Token: srv.Token(apitest.DemoUserEmail)}
	_, err := newClient(t, srv).CreateUser(context.Background(), sess, dto.CreateUserRequest{
		Name: "Nora", Email: "nora@inventario.dev", Password: "secret1", Role: "user",
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, apitest.DetailAdminOnly, apiErr.Detail)
}

func TestAuthenticatedCallsNeedToken(t *testing.T) {
	client, err := NewClient("http://localhost:8000")
	require.NoError(t, err)

	_, err = client.CreateUser(context.Background(), session.Session{}, dto.CreateUserRequest{})
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = client.Me(context.Background(), session.Session{})
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = client.ListProducts(context.Background(), session.Session{})
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = client.GetProduct(context.Background(), session.Session{}, 1)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = client.CreateProduct(context.Background(), session.Session{}, dto.ProductRequest{})
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = client.UpdateProduct(context.Background(), session.Session{}, 1, dto.ProductRequest{})
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, client.DeleteProduct(context.Background(), session.Session{}, 1), ErrNoSession)
}

func TestRegister(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	client := newClient(t, srv)
	req := dto.RegisterRequest{Name: " Ana ", Email: "ana@inventario.dev", Password: "secret1"}

	created, err := client.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Ana", created.Name)
	assert.Equal(t, "admin", created.Role)
	assert.NotZero(t, created.ID)
	assert.Empty(t, srv.Requests("/auth/register")[0].Authorization)

	_, err = client.Register(context.Background(), req)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, apitest.DetailEmailTaken, apiErr.Detail)

	resp, err := client.Login(context.Background(), dto.LoginRequest{Email: req.Email, Password: req.Password})
	require.NoError(t, err)
	assert.Equal(t, "ana@inventario.dev", resp.User.Email)
}

func TestProductLifecycle(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	m := metrics.New()
	client := newClient(t, srv, WithMetrics(m))
	sess := adminSession(srv)
	ctx := context.Background()
	shelf := "Shelf A"

	created, err := client.CreateProduct(ctx, sess, dto.ProductRequest{Name: "Bolt", SKU: "BLT-1", Quantity: 5, Location: &shelf})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NotZero(t, created.CreatedAt)
	require.NotNil(t, created.Location)
	assert.Equal(t, "Shelf A", *created.Location)

	_, err = client.CreateProduct(ctx, sess, dto.ProductRequest{Name: "Other", SKU: "blt-1", Quantity: 1})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, apitest.DetailSKUTaken, apiErr.Detail)

	got, err := client.GetProduct(ctx, sess, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := client.UpdateProduct(ctx, sess, created.ID, dto.ProductRequest{Name: "Bolt M8", SKU: "BLT-1", Quantity: 12})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Bolt M8", updated.Name)
	assert.Equal(t, 12, updated.Quantity)
	assert.Nil(t, updated.Location)

	require.NoError(t, client.DeleteProduct(ctx, sess, created.ID))
	assert.Empty(t, srv.Products())

	_, err = client.GetProduct(ctx, sess, created.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, apitest.DetailNotFound, apiErr.Detail)

	err = client.DeleteProduct(ctx, sess, created.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	_, err = client.UpdateProduct(ctx, sess, created.ID, dto.ProductRequest{Name: "Gone", SKU: "GN-1"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	// ids stay out of the metric labels
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("/products/{id}", "204")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("/products/{id}", "404")))
}

func TestProductWritesNeedAdmin(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	p := srv.AddProduct(apitest.Product{Name: "Nut", SKU: "NUT-1", Quantity: 3})

	client := newClient(t, srv)
	sess := session.Session{Token: srv.Token(apitest.DemoUserEmail)}
	ctx := context.Background()

	got, err := client.GetProduct(ctx, sess, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "NUT-1", got.SKU)

	var apiErr *APIError
	_, err = client.CreateProduct(ctx, sess, dto.ProductRequest{Name: "Bolt", SKU: "BLT-1"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	err = client.DeleteProduct(ctx, sess, p.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Len(t, srv.Products(), 1)
}

func TestDeleteProductUnauthorized(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Override(http.MethodDelete, "/products/42", http.StatusUnauthorized, `{"detail":"Invalid or expired token."}`)

	err := newClient(t, srv).DeleteProduct(context.Background(), adminSession(srv), 42)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMeAndProducts(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	loc := "A-1"
	srv.AddProduct(apitest.Product{ID: 1, Name: "Widget", SKU: "WDG-1", Quantity: 4, Location: &loc})

	client := newClient(t, srv)
	sess := adminSession(srv)

	me, err := client.Me(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, apitest.DemoAdminEmail, me.Email)
	assert.Equal(t, "admin", me.Role)
	assert.NotZero(t, me.ID)

	products, err := client.ListProducts(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "WDG-1", products[0].SKU)
	require.NotNil(t, products[0].Location)
	assert.Equal(t, "A-1", *products[0].Location)
}

func TestNetworkFailureIsNotAPIError(t *testing.T) {
	srv := apitest.NewServer()
	client := newClient(t, srv)
	srv.Close()

	_, err := client.Login(context.Background(), dto.LoginRequest{Email: "a@b.c", Password: "secret1"})
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"string detail", 409, `{"detail":"taken"}`, "taken"},
		{"validation list", 422, `{"detail":[{"loc":["body","email"],"msg":"bad email","type":"value_error"}]}`, "bad email"},
		{"no body", 500, ``, ""},
		{"html body", 502, `<html>bad gateway</html>`, ""},
		{"other shape", 400, `{"error":"nope"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := parseAPIError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.detail, apiErr.Detail)
		})
	}

	assert.Equal(t, "Request failed with status 500", parseAPIError(500, nil).Message("Request failed with status 500"))
	assert.Equal(t, "API returned status 500", parseAPIError(500, nil).Error())
}

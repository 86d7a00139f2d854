package idealista

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idealista-pricing/utils"
)

const searchBody = `{
	"total": 120,
	"totalPages": 3,
	"actualPage": 2,
	"itemsPerPage": 50,
	"elementList": [
		{"propertyCode": "9630", "price": 250000.0, "floor": "bj",
		 "parkingSpace": {"hasParkingSpace": true, "isParkingSpaceIncludedInPrice": true}}
	]
}`

func newTestServer(t *testing.T, search http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":43200}`))
	})
	if search != nil {
		mux.HandleFunc("/search", search)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(utils.NewNopLogger(),
		WithHTTPClient(srv.Client()),
		WithEndpoints(srv.URL+"/oauth/token", srv.URL+"/search"))
}

func TestAuthenticate(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newTestClient(srv)

	tok, err := c.Authenticate(context.Background(), "key", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)
	assert.Equal(t, "tok-123", c.Token())
}

func TestAuthenticateBadCredentials(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newTestClient(srv)

	_, err := c.Authenticate(context.Background(), "key", "wrong")
	assert.Error(t, err)
	assert.Empty(t, c.Token())
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "40.42,-3.70", q.Get("center"))
		assert.Equal(t, "es", q.Get("country"))
		assert.Equal(t, "2", q.Get("numPage"))
		assert.Equal(t, "50", q.Get("maxItems"))
		assert.Equal(t, "1000", q.Get("distance"))
		assert.Equal(t, "homes", q.Get("propertyType"))
		assert.Equal(t, "sale", q.Get("operation"))

		_, _ = w.Write([]byte(searchBody))
	})
	c := newTestClient(srv)
	c.SetToken("tok-123")

	p := DefaultSearchParams("40.42,-3.70")
	p.NumPage = 2
	res, err := c.Search(context.Background(), p)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 120, res.Total)
	require.Len(t, res.ElementList, 1)
	assert.Equal(t, "bj", res.ElementList[0]["floor"])

	s := Summary(res)
	assert.Equal(t, 3, s.TotalPages)
	assert.Equal(t, 2, s.ActualPage)
	assert.Equal(t, 50, s.ItemsPerPage)
}

func TestSearchUndecodableBodyReturnsNil(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream error</html>"))
	})
	c := newTestClient(srv)
	c.SetToken("tok-123")

	res, err := c.Search(context.Background(), DefaultSearchParams("40.42,-3.70"))
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestSearchRequiresToken(t *testing.T) {
	c := NewClient(utils.NewNopLogger())
	_, err := c.Search(context.Background(), DefaultSearchParams("40.42,-3.70"))
	assert.ErrorIs(t, err, ErrNoToken)
}

package ceremony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarcoPoloResearchLab/photodiary/internal/apiclient"
	"github.com/gin-gonic/gin"
)

func newTestServer(t *testing.T, register func(router *gin.Engine)) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	register(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func mustClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	api, err := apiclient.New(apiclient.Config{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("failed to construct api client: %v", err)
	}
	client, err := NewClient(api, nil)
	if err != nil {
		t.Fatalf("failed to construct ceremony client: %v", err)
	}
	return client
}

type stubManager struct {
	credential      *AttestationCredential
	assertion       *AssertionCredential
	err             error
	creationOptions CreationOptions
	requestOptions  RequestOptions
	calls           int
}

func (s *stubManager) CreateCredential(_ context.Context, options CreationOptions) (*AttestationCredential, error) {
	s.calls++
	s.creationOptions = options
	return s.credential, s.err
}

func (s *stubManager) GetAssertion(_ context.Context, options RequestOptions) (*AssertionCredential, error) {
	s.calls++
	s.requestOptions = options
	return s.assertion, s.err
}

func serveJSON(body string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(body))
	}
}

func serveText(status int, body string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(status, body)
	}
}

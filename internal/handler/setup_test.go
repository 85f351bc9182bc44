package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/legalvault/internal/ai"
	"github.com/xxxsen/legalvault/internal/corpus"
	"github.com/xxxsen/legalvault/internal/embedcache"
	"github.com/xxxsen/legalvault/internal/filestore"
	"github.com/xxxsen/legalvault/internal/handler"
	"github.com/xxxsen/legalvault/internal/middleware"
	"github.com/xxxsen/legalvault/internal/service"
)

const testCorpus = `[
  {"case_id": "A", "court": "Delhi High Court", "date": "2021-03-04", "summary": "murder case IPC 302",
   "judges": ["J. Sharma"], "acts_referred": ["Indian Penal Code"], "predicted_outcome": "Dismissed"},
  {"case_id": "B", "court": "Delhi High Court", "date": "2020-01-10", "summary": "murder case IPC 302",
   "judges": ["J. Sharma", "J. Rao"], "acts_referred": ["Indian Penal Code"], "predicted_outcome": "Allowed"},
  {"case_id": "C", "court": "Madras High Court", "date": "Unknown", "summary": "unrelated tax dispute",
   "judges": ["J. Iyer"], "acts_referred": ["Income Tax Act"], "predicted_outcome": "Unknown"}
]`

var testSecret = []byte("test-secret")

type testServer struct {
	router     http.Handler
	archiveDir string
	corpus     string
}

type setupOption struct {
	content string
	start   bool
}

func setupRouter(t *testing.T, opt setupOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	srv := &testServer{
		archiveDir: filepath.Join(dir, "archive"),
		corpus:     filepath.Join(dir, "judgments.json"),
	}
	if opt.content != "" {
		require.NoError(t, os.WriteFile(srv.corpus, []byte(opt.content), 0o644))
	}

	p, err := ai.NewProvider("local", map[string]interface{}{"dimension": 512})
	require.NoError(t, err)
	backend, err := ai.NewBackend(p, ai.BackendConfig{Model: "hash"})
	require.NoError(t, err)
	manager := embedcache.NewManager(filepath.Join(dir, "embeddings.msgpack"), backend)
	sim := service.NewSimilarityService(corpus.NewStore(srv.corpus), manager, backend)
	if opt.start {
		require.NoError(t, sim.Start(context.Background()))
	}

	archive, err := filestore.New("local", map[string]interface{}{"dir": srv.archiveDir})
	require.NoError(t, err)

	deps := handler.RouterDeps{
		Cases:        handler.NewCaseHandler(service.NewCaseService(sim), sim),
		Similarity:   handler.NewSimilarityHandler(sim),
		Import:       handler.NewImportHandler(sim, archive, "imports", 1024*1024),
		ImportSecret: testSecret,
	}
	engine, err := webapi.NewEngine(
		"/api",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	srv.router = engine
	return srv
}

type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, header map[string]string) apiResponse {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var out apiResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

type resultList struct {
	Count   int `json:"count"`
	Results []struct {
		Case       map[string]interface{} `json:"case"`
		Similarity float64                `json:"similarity"`
	} `json:"results"`
}

func (r resultList) ids() []string {
	out := make([]string, 0, len(r.Results))
	for _, item := range r.Results {
		id, _ := item.Case["case_id"].(string)
		out = append(out, id)
	}
	return out
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

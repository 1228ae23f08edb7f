package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"

	"go.ngs.io/ww3-gridprep/internal/adapter/interp"
	"go.ngs.io/ww3-gridprep/internal/adapter/store/bathymetry"
	"go.ngs.io/ww3-gridprep/internal/adapter/store/coastline"
	"go.ngs.io/ww3-gridprep/internal/domain"
	"go.ngs.io/ww3-gridprep/internal/usecase"
)

type flatSea struct{}

func (flatSea) Window(b r2.Rect) (*interp.Grid2D, error) {
	g := &interp.Grid2D{
		X: []float64{b.X.Lo, b.X.Hi},
		Y: []float64{b.Y.Lo, b.Y.Hi},
	}
	g.Values = [][]float64{{-500, -500}, {-500, -500}}
	return g, nil
}

func (flatSea) Close() error { return nil }

type noCoast struct{}

func (noCoast) Window(r2.Rect) (*domain.Shoreline, error) { return domain.NewShoreline(nil), nil }
func (noCoast) Close() error                              { return nil }

type testServer struct {
	router     *gin.Engine
	outputRoot string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uc, err := usecase.NewGridUseCase(usecase.Config{
		CacheDir:      filepath.Join(t.TempDir(), "cache"),
		ValidateDelay: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = uc.Close() })
	uc.WithOpeners(
		func(string, domain.RefGrid) (bathymetry.Store, error) { return flatSea{}, nil },
		func(string, domain.Boundary, domain.Antarctic) (coastline.Store, error) { return noCoast{}, nil },
	)

	out := t.TempDir()
	return &testServer{router: SetupRouter(uc, t.TempDir(), out), outputRoot: out}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func gridBody(name string) map[string]any {
	return map[string]any{
		"name": name,
		"dx":   0.05, "dy": 0.05,
		"lon_w": -140, "lon_e": -132, "lat_s": -40, "lat_n": -39.5,
		"ref_grid": "gebco", "boundary": "full",
	}
}

func TestGenerateGrid(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodPost, "/v1/grids", gridBody("run-1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, false, resp["cache_hit"])
	require.EqualValues(t, 161, resp["nx"])
	require.EqualValues(t, 11, resp["ny"])
	require.FileExists(t, filepath.Join(s.outputRoot, "run-1", domain.BotFile))

	w, resp = s.do(t, http.MethodPost, "/v1/grids", gridBody("run-2"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, resp["cache_hit"])

	a, err := os.ReadFile(filepath.Join(s.outputRoot, "run-1", domain.BotFile))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(s.outputRoot, "run-2", domain.BotFile))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestGenerateGrid_BadRequests(t *testing.T) {
	s := newTestServer(t)

	for name, body := range map[string]map[string]any{
		"traversal": gridBody("../escape"),
		"empty":     gridBody(""),
		"dx": func() map[string]any {
			b := gridBody("ok")
			b["dx"] = -1
			return b
		}(),
		"boundary": func() map[string]any {
			b := gridBody("ok")
			b["boundary"] = "medium"
			return b
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			w, resp := s.do(t, http.MethodPost, "/v1/grids", body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.NotEmpty(t, resp["error"])
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/grids", strings.NewReader("{"))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNestGrid(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodPost, "/v1/grids/nest", map[string]any{
		"extent": map[string]any{"lon_w": 100, "lon_e": 140, "lat_s": 0, "lat_n": 40, "dx": 0.1, "dy": 0.1},
		"scale":  3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "inner", resp["direction"])
	ext := resp["extent"].(map[string]any)
	require.InDelta(t, 113.3333333333, ext["lon_w"], 1e-9)
	require.InDelta(t, 126.6666666667, ext["lon_e"], 1e-9)
	require.InDelta(t, 0.0333333333, ext["dx"], 1e-9)

	w, resp = s.do(t, http.MethodPost, "/v1/grids/nest", map[string]any{
		"extent":    ext,
		"scale":     3,
		"direction": "outer",
	})
	require.Equal(t, http.StatusOK, w.Code)
	back := resp["extent"].(map[string]any)
	require.InDelta(t, 100, back["lon_w"], 1e-9)
	require.InDelta(t, 40, back["lat_n"], 1e-9)

	w, _ = s.do(t, http.MethodPost, "/v1/grids/nest", map[string]any{
		"extent": ext, "scale": 1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/v1/grids/nest", map[string]any{
		"extent": ext, "scale": 2, "direction": "sideways",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetArtifact(t *testing.T) {
	s := newTestServer(t)
	w, resp := s.do(t, http.MethodPost, "/v1/grids", gridBody("run"))
	require.Equal(t, http.StatusOK, w.Code)
	key := resp["key"].(string)

	w, _ = s.do(t, http.MethodGet, "/v1/grids/"+key+"/"+domain.MetaFile, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "'RECT' T 'NONE'\n161 11\n")

	w, _ = s.do(t, http.MethodGet, "/v1/grids/"+strings.Repeat("0", 64)+"/"+domain.MetaFile, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodGet, "/v1/grids/"+key+"/catalog.db", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	w, resp := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", resp["status"])
}

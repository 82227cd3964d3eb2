package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/mw"
	"github.com/MrSnakeDoc/linkdeck/internal/importer"
	"github.com/MrSnakeDoc/linkdeck/internal/index"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
	"github.com/MrSnakeDoc/linkdeck/internal/validation"
)

const twoLinks = `[
  {"title": "Claude", "url": "https://claude.ai", "suggested_section": "AI"},
  {"title": "GitHub", "url": "github.com", "suggested_section": "Dev"}
]`

type stubCompleter struct {
	mu   sync.Mutex
	out  string
	err  error
	last string
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = user
	return s.out, s.err
}

type memCatalog struct {
	mu       sync.Mutex
	sections []domain.Section
	links    []domain.Link
	pingErr  error
}

func (m *memCatalog) Ping(ctx context.Context) error { return m.pingErr }

func (m *memCatalog) Counts(ctx context.Context) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sections)), int64(len(m.links)), nil
}

func (m *memCatalog) ListSections(ctx context.Context) ([]domain.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Section(nil), m.sections...), nil
}

func (m *memCatalog) CreateSection(ctx context.Context, title string) (domain.Section, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sections {
		if domain.FoldTitle(s.Title) == domain.FoldTitle(title) {
			return s, false, nil
		}
	}
	s := domain.Section{ID: fmt.Sprintf("sec-%d", len(m.sections)+1), Title: title, Visible: true}
	m.sections = append(m.sections, s)
	return s, true, nil
}

func (m *memCatalog) HasLink(ctx context.Context, scope domain.DedupScope, sectionID, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.URL == url && l.SectionID == sectionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCatalog) AddLink(ctx context.Context, scope domain.DedupScope, link *domain.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, *link)
	return nil
}

func (m *memCatalog) Links() []domain.Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Link(nil), m.links...)
}

type fixture struct {
	handler   http.Handler
	completer *stubCompleter
	catalog   *memCatalog
	idx       *index.MemoryIndex
	refreshes int
	deps      deps.Deps
}

func newFixture(t *testing.T, mutate ...func(*deps.Deps)) *fixture {
	t.Helper()

	f := &fixture{
		completer: &stubCompleter{out: twoLinks},
		catalog: &memCatalog{sections: []domain.Section{
			{ID: "sec-ai", Title: "AI Tools", Visible: true},
		}},
		idx: index.NewMemoryIndex(),
	}
	f.idx.Replace(
		[]domain.Section{
			{ID: "sec-ai", Title: "AI Tools", Visible: true},
			{ID: "sec-hidden", Title: "Drafts", Visible: false},
		},
		map[string][]domain.Link{
			"sec-ai":     {{ID: "lnk-1", SectionID: "sec-ai", Title: "Perplexity", URL: "https://perplexity.ai"}},
			"sec-hidden": {{ID: "lnk-2", SectionID: "sec-hidden", Title: "Secret", URL: "https://secret.example"}},
		},
	)

	log := logger.NewNop()
	var mu sync.Mutex
	controller := importer.NewController(importer.Options{
		Extractor: importer.NewExtractor(f.completer, 10000, log),
		Executor:  importer.NewExecutor(f.catalog, importer.ExecutorConfig{Attempts: 1}, log),
		Catalog:   f.catalog,
		OnImported: func(*domain.ImportResult) {
			mu.Lock()
			f.refreshes++
			mu.Unlock()
		},
		Log: log,
	})

	f.deps = deps.Deps{
		Logger:           log,
		StartTime:        time.Now(),
		Version:          "test",
		RequestTimeout:   time.Second,
		Store:            f.catalog,
		MemoryIndex:      f.idx,
		Importer:         controller,
		Validator:        validation.New(),
		MaxUploadBytes:   1 << 20,
		ExtractRateLimit: mw.RateLimitConfig{Burst: 100, RefillPerMin: 100},
		Model:            "gpt-4o-mini",
		RefreshCatalog:   func() bool { return true },
	}
	for _, m := range mutate {
		m(&f.deps)
	}
	f.handler = NewRouter(f.deps)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) importer.View {
	t.Helper()
	var v importer.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	State     string `json:"state"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errBody {
	t.Helper()
	var e errBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestReadyz(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", nil).Code)

	f.catalog.pingErr = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/readyz", nil).Code)
}

func TestReadyzBeforeFirstLoad(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) { d.MemoryIndex = index.NewMemoryIndex() })

	rec := f.do(t, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog not loaded")
}

func TestInfra(t *testing.T) {
	f := newFixture(t)
	f.catalog.pingErr = errors.New("connection refused")

	rec := f.do(t, http.MethodGet, "/infra", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Mode       string `json:"mode"`
		Components map[string]struct {
			OK    bool   `json:"ok"`
			Model string `json:"model"`
			State string `json:"state"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Mode)
	assert.False(t, body.Components["redis"].OK)
	assert.Equal(t, "gpt-4o-mini", body.Components["extraction"].Model)
	assert.Equal(t, "input", body.Components["import"].State)
}

func TestReload(t *testing.T) {
	queued := true
	f := newFixture(t, func(d *deps.Deps) { d.RefreshCatalog = func() bool { return queued } })

	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/reload", nil).Code)

	queued = false
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodPost, "/reload", nil).Code)
}

func TestCatalogHidesHiddenSections(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sections []index.SectionView `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sections, 1)
	assert.Equal(t, "AI Tools", body.Sections[0].Title)
	assert.Len(t, body.Sections[0].Links, 1)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/search?q=perplexity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"lnk-1"`)

	rec = f.do(t, http.MethodGet, "/api/search?q=secret", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "lnk-2")

	rec = f.do(t, http.MethodGet, "/api/search?q=x&limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/admin/import/extract", map[string]string{"text": "claude.ai and github.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decodeView(t, rec)
	assert.Equal(t, importer.StatePreview, v.State)
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, 2, v.Selected)
	assert.Equal(t, "sec-ai", v.Mapping["AI"].SectionID)
	assert.True(t, v.Mapping["Dev"].CreateNew)

	rec = f.do(t, http.MethodPost, "/admin/import/selection", map[string]any{"action": "deselect", "index": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeView(t, rec).Selected)

	rec = f.do(t, http.MethodPatch, "/admin/import/candidates/0", map[string]string{"field": "subtitle", "value": "Assistant"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/admin/import/commit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decodeView(t, rec)
	assert.Equal(t, importer.StateDone, v.State)
	require.NotNil(t, v.Result)
	assert.Equal(t, 1, v.Result.Imported)

	links := f.catalog.Links()
	require.Len(t, links, 1)
	assert.Equal(t, "https://claude.ai", links[0].URL)
	assert.Equal(t, "sec-ai", links[0].SectionID)
	assert.Equal(t, "Assistant", links[0].Subtitle)
	assert.Equal(t, 1, f.refreshes)

	rec = f.do(t, http.MethodPost, "/admin/import/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, importer.StateInput, decodeView(t, rec).State)
}

func TestImportErrorsMapToStatus(t *testing.T) {
	t.Run("commit before extraction is a conflict", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/admin/import/commit", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		e := decodeErr(t, rec)
		assert.Equal(t, "invalid_transition", e.Error)
		assert.Equal(t, "input", e.State)
		assert.False(t, e.Retryable)
	})

	t.Run("empty text is unprocessable", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/admin/import/extract", map[string]string{"text": "   "})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "empty_input", decodeErr(t, rec).Error)
	})

	t.Run("extraction outage is retryable", func(t *testing.T) {
		f := newFixture(t)
		f.completer.err = errors.New("dial tcp: connection refused")
		rec := f.do(t, http.MethodPost, "/admin/import/extract", map[string]string{"text": "claude.ai"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		e := decodeErr(t, rec)
		assert.Equal(t, "extraction_transport", e.Error)
		assert.True(t, e.Retryable)
		assert.Equal(t, "input", e.State)
		assert.NotContains(t, e.Message, "dial tcp")
	})

	t.Run("garbage output is unprocessable", func(t *testing.T) {
		f := newFixture(t)
		f.completer.out = "Sorry, I cannot help with that."
		rec := f.do(t, http.MethodPost, "/admin/import/extract", map[string]string{"text": "claude.ai"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "extraction_format", decodeErr(t, rec).Error)
	})

	t.Run("unknown index is not found", func(t *testing.T) {
		f := newFixture(t)
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/admin/import/extract", map[string]string{"text": "x"}).Code)
		rec := f.do(t, http.MethodDelete, "/admin/import/candidates/7", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "invalid_index", decodeErr(t, rec).Error)
	})

	t.Run("bad index is a bad request", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodDelete, "/admin/import/candidates/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid selection action fails validation", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/admin/import/selection", map[string]any{"action": "toggle"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "invalid_request", decodeErr(t, rec).Error)
	})

	t.Run("unknown JSON fields are rejected", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/admin/import/extract", map[string]string{"txt": "claude.ai"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestImportMappingAndAdd(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/admin/import/extract", map[string]string{"text": "x"}).Code)

	rec := f.do(t, http.MethodPut, "/admin/import/mappings", map[string]any{"label": "Dev", "create_new": true, "title": "Developer Tools"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Developer Tools", decodeView(t, rec).Mapping["Dev"].Title)

	rec = f.do(t, http.MethodPut, "/admin/import/mappings", map[string]any{"label": "Dev"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "section_id is required without create_new")

	rec = f.do(t, http.MethodPost, "/admin/import/candidates", map[string]string{"title": "Figma", "url": "figma.com", "suggested_section": "Design"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var added struct {
		Index int           `json:"index"`
		View  importer.View `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, 2, added.Index)
	assert.Equal(t, 3, added.View.Total)

	rec = f.do(t, http.MethodPut, "/admin/import/editing", map[string]int{"index": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeView(t, rec).Editing)

	rec = f.do(t, http.MethodPut, "/admin/import/editing", map[string]int{"index": importer.NoEditing})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, importer.NoEditing, decodeView(t, rec).Editing)
}

func TestImportExtractMultipart(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("text", "see the attached list"))
	part, err := w.CreateFormFile("files", "links.html")
	require.NoError(t, err)
	_, err = part.Write([]byte(`<ul><li><a href="https://figma.com">Figma</a></li></ul>`))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/import/extract", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, f.completer.last, "see the attached list")
	assert.Contains(t, f.completer.last, "https://figma.com")
}

func TestAdminRoutesAreCIDRRestricted(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
		d.TrustProxy = false
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/import", nil)
	req.RemoteAddr = "192.0.2.10:4242"
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/import", nil)
	req.RemoteAddr = "10.1.2.3:4242"
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The public catalog stays open
	req = httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
	req.RemoteAddr = "192.0.2.10:4242"
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractIsRateLimited(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) {
		d.ExtractRateLimit = mw.RateLimitConfig{Burst: 1, RefillPerMin: 1}
	})

	body := map[string]string{"text": "   "}
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodPost, "/admin/import/extract", body).Code)

	rec := f.do(t, http.MethodPost, "/admin/import/extract", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.True(t, strings.Contains(rec.Body.String(), "rate_limited"))
}

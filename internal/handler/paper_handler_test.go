package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/papershelf/internal/handler"
	"github.com/xxxsen/papershelf/internal/middleware"
	"github.com/xxxsen/papershelf/internal/model"
	"github.com/xxxsen/papershelf/internal/pkg/errcode"
	"github.com/xxxsen/papershelf/internal/repo"
	"github.com/xxxsen/papershelf/internal/service"
	"github.com/xxxsen/papershelf/internal/testutil"
)

func setupRouter(t *testing.T) (http.Handler, *repo.PaperRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	papers := repo.NewPaperRepo(testutil.OpenTestHandle(t))
	svc := service.NewPaperService(papers, 8, time.Minute)
	router := handler.NewRouter(handler.RouterDeps{
		Papers: handler.NewPaperHandler(svc),
		Tags:   handler.NewTagHandler(service.NewTagService(papers)),
	}, middleware.RequestID())
	return router, papers
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func paperBody(title, date string, tags ...string) string {
	payload := map[string]interface{}{
		"meta": map[string]interface{}{
			"title":     title,
			"authors":   []string{"Ian Goodfellow"},
			"tags":      tags,
			"date":      date,
			"paperLink": "https://arxiv.org/abs/1406.2661",
		},
		"sections": []map[string]interface{}{
			{"id": "a", "title": "A", "type": "text", "content": []string{"a1"}},
			{"id": "b", "title": "B", "type": "text", "content": []string{"b1"}},
			{"id": "c", "title": "C", "type": "gallery", "content": []string{"1"}},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func createPaper(t *testing.T, router http.Handler, title, date string, tags ...string) string {
	t.Helper()
	resp := doJSON(t, router, http.MethodPost, "/api/paper", paperBody(title, date, tags...))
	require.Equal(t, http.StatusCreated, resp.Code)
	var result struct {
		Message string `json:"message"`
		ID      string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, "Paper created", result.Message)
	require.NotEmpty(t, result.ID)
	return result.ID
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error.Code
}

func TestCreateAndGetPaper(t *testing.T) {
	router, _ := setupRouter(t)
	id := createPaper(t, router, "GAN", "2014年6月10日", "CV")

	resp := doJSON(t, router, http.MethodGet, "/api/paper/"+id, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var paper model.Paper
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &paper))
	require.Equal(t, id, paper.ID)
	require.Equal(t, "GAN", paper.Meta.Title)
	require.Equal(t, "https://arxiv.org/abs/1406.2661", paper.Meta.PaperLink)
	require.Len(t, paper.Sections, 3)
	require.Equal(t, model.SectionTypeGallery, paper.Sections[2].Type)

	resp = doJSON(t, router, http.MethodGet, "/api/paper/nope", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, errcode.ErrDocumentNotFound, errorCode(t, resp))
}

func TestCreateRejectsBadBodies(t *testing.T) {
	router, papers := setupRouter(t)
	bodies := []string{
		`{"meta":{"title":"x","authors":[],"tags":[],"date":"2020","paperLink":""}}`,
		`{"sections":[]}`,
		`{"meta":{"title":"x","authors":"someone"},"sections":[]}`,
		`{"meta":{"title":"x"},"sections":[{"id":"a","type":"text","content":[]},{"id":"a","type":"text","content":[]}]}`,
		`not json`,
		`{"meta":{"title":"x"},"sections":[{"id":"a","type":"text","content":["x",null]}]}`,
		`{"meta":{"title":"x","authors":["a",null]},"sections":[]}`,
		`{"meta":{"title":"x","tags":[null]},"sections":[]}`,
	}
	for _, body := range bodies {
		resp := doJSON(t, router, http.MethodPost, "/api/paper", body)
		require.Equal(t, http.StatusBadRequest, resp.Code, body)
		require.Equal(t, errcode.ErrInvalid, errorCode(t, resp))
	}
	count, err := papers.Count(t.Context())
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestListPapersWithTagFilter(t *testing.T) {
	router, _ := setupRouter(t)
	cv := createPaper(t, router, "cv", "2015", "CV")
	createPaper(t, router, "nlp", "2016", "NLP")
	both := createPaper(t, router, "both", "2017", "CV", "NLP")

	resp := doJSON(t, router, http.MethodGet, "/api/papers?tag=CV", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var items []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &items))
	require.Len(t, items, 2)
	var ids []string
	for _, item := range items {
		var id string
		require.NoError(t, json.Unmarshal(item["id"], &id))
		ids = append(ids, id)
		require.Contains(t, item, "meta")
		require.NotContains(t, item, "sections")
	}
	require.Equal(t, []string{both, cv}, ids)

	resp = doJSON(t, router, http.MethodGet, "/api/papers?limit=1&offset=2", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &items))
	require.Len(t, items, 1)
}

func TestListRejectsBadPagination(t *testing.T) {
	router, _ := setupRouter(t)
	createPaper(t, router, "a", "2020")
	for _, query := range []string{"limit=-1", "offset=-3", "limit=abc", "offset=1.5"} {
		resp := doJSON(t, router, http.MethodGet, "/api/papers?"+query, "")
		require.Equal(t, http.StatusBadRequest, resp.Code, query)
		require.Equal(t, errcode.ErrInvalid, errorCode(t, resp), query)
	}
	resp := doJSON(t, router, http.MethodGet, "/api/papers?limit=0&offset=0", "")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestListEmptyReturnsArray(t *testing.T) {
	router, _ := setupRouter(t)
	resp := doJSON(t, router, http.MethodGet, "/api/papers", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `[]`, resp.Body.String())
}

func TestLatestAndSectionMutations(t *testing.T) {
	router, _ := setupRouter(t)

	resp := doJSON(t, router, http.MethodGet, "/api/paper", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	resp = doJSON(t, router, http.MethodPut, "/api/paper/section/a", `{"content":["x"]}`)
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, errcode.ErrDocumentNotFound, errorCode(t, resp))

	createPaper(t, router, "attention", "2017年6月12日", "NLP")
	latest := createPaper(t, router, "jit", "2025年11月18日", "CV")
	createPaper(t, router, "gan", "2014年6月10日", "CV")

	resp = doJSON(t, router, http.MethodGet, "/api/paper", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var paper model.Paper
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &paper))
	require.Equal(t, latest, paper.ID)

	resp = doJSON(t, router, http.MethodPut, "/api/paper/section/b", `{"content":["new b"]}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"id":"b","title":"B","type":"text","content":["new b"]}`, resp.Body.String())

	resp = doJSON(t, router, http.MethodPut, "/api/paper/section/b", `{"content":"new b"}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	resp = doJSON(t, router, http.MethodPut, "/api/paper/section/b", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	resp = doJSON(t, router, http.MethodPut, "/api/paper/section/b", `{"content":null}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	resp = doJSON(t, router, http.MethodPut, "/api/paper/section/b", `{"content":["kept",null]}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, errcode.ErrInvalid, errorCode(t, resp))

	resp = doJSON(t, router, http.MethodPut, "/api/paper/section/zzz", `{"content":[]}`)
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, errcode.ErrSectionNotFound, errorCode(t, resp))

	resp = doJSON(t, router, http.MethodDelete, "/api/paper/section/a", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"success":true}`, resp.Body.String())

	resp = doJSON(t, router, http.MethodDelete, "/api/paper/section/a", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, errcode.ErrSectionNotFound, errorCode(t, resp))

	resp = doJSON(t, router, http.MethodGet, "/api/paper/"+latest, "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &paper))
	require.Len(t, paper.Sections, 2)
	require.Equal(t, "b", paper.Sections[0].ID)
	require.Equal(t, []string{"new b"}, paper.Sections[0].Content)
	require.Equal(t, "c", paper.Sections[1].ID)
}

func TestExplicitPaperSectionRoutes(t *testing.T) {
	router, _ := setupRouter(t)
	older := createPaper(t, router, "gan", "2014", "CV")
	createPaper(t, router, "jit", "2025", "CV")

	resp := doJSON(t, router, http.MethodPut, "/api/papers/"+older+"/sections/c", `{"content":["9"]}`)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = doJSON(t, router, http.MethodDelete, "/api/papers/"+older+"/sections/a", "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, router, http.MethodGet, "/api/paper/"+older, "")
	var paper model.Paper
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &paper))
	require.Len(t, paper.Sections, 2)
	require.Equal(t, []string{"9"}, paper.Sections[1].Content)

	resp = doJSON(t, router, http.MethodDelete, "/api/papers/missing/sections/a", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, errcode.ErrDocumentNotFound, errorCode(t, resp))
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)
	createPaper(t, router, "x", "2020")
	resp := doJSON(t, router, http.MethodGet, "/api/healthz", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"ok":true,"papers":1}`, resp.Body.String())
}

func TestWriteLimiterGuardsMutationsOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewPaperService(repo.NewPaperRepo(testutil.OpenTestHandle(t)), 0, 0)
	router := handler.NewRouter(handler.RouterDeps{
		Papers:       handler.NewPaperHandler(svc),
		WriteLimiter: middleware.RateLimit(time.Hour),
	})

	resp := doJSON(t, router, http.MethodPost, "/api/paper", paperBody("a", "2020"))
	require.Equal(t, http.StatusCreated, resp.Code)
	resp = doJSON(t, router, http.MethodPost, "/api/paper", paperBody("b", "2021"))
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	require.Equal(t, errcode.ErrTooMany, errorCode(t, resp))

	for i := 0; i < 2; i++ {
		resp = doJSON(t, router, http.MethodGet, "/api/papers", "")
		require.Equal(t, http.StatusOK, resp.Code)
	}
}

func TestListTags(t *testing.T) {
	router, _ := setupRouter(t)
	createPaper(t, router, "a", "2020", "CV")
	createPaper(t, router, "b", "2021", "NLP", "CV")

	resp := doJSON(t, router, http.MethodGet, "/api/tags", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `[{"name":"CV","count":2},{"name":"NLP","count":1}]`, resp.Body.String())
}

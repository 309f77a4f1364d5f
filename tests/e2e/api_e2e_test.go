package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkpost/internal/cache"
	"github.com/inkpost/internal/db"
	"github.com/inkpost/internal/handler"
	"github.com/inkpost/internal/metrics"
	"github.com/inkpost/internal/router"
	"github.com/inkpost/internal/service"
)

type e2eSuite struct {
	handler   http.Handler
	public    httpClient
	admin     httpClient
	baseURL   string
	adminUser string
	adminPass string
	metrics   *metrics.Metrics
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler, withJar bool) *localClient {
	var jar http.CookieJar
	if withJar {
		if j, err := cookiejar.New(nil); err == nil {
			jar = j
		}
	}
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

type postJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type postEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Post    postJSON `json:"post"`
}

type listEnvelope struct {
	Success bool       `json:"success"`
	Posts   []postJSON `json:"posts"`
}

type errorEnvelope struct {
	Error  string               `json:"error"`
	Fields []service.FieldError `json:"fields"`
}

func newE2ESuite(t *testing.T, policy service.SlugPolicy, withCache bool) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(db.Options{Driver: "sqlite", Path: dsn})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	if err := db.EnsureUser(gdb, "admin", "e2e-secret"); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	m := metrics.New()
	var posts service.Posts = service.NewPostService(gdb,
		service.WithSlugPolicy(policy, 10),
		service.WithMetrics(m),
	)
	if withCache {
		posts = service.NewCachedPostService(posts, cache.NewMemory(), nil, m)
	}

	api := handler.NewAPI(gdb, handler.Options{
		Posts:   posts,
		Metrics: m,
		Site:    handler.SiteInfo{Name: "E2E Blog", BaseURL: "http://example.test"},
	})
	engine := router.SetupRouter(api, router.Options{SessionSecret: "test-session-secret", AuthEnabled: true})

	return &e2eSuite{
		handler:   engine,
		public:    newLocalClient(engine, false),
		admin:     newLocalClient(engine, true),
		baseURL:   "http://example.test",
		adminUser: "admin",
		adminPass: "e2e-secret",
		metrics:   m,
	}
}

func TestE2E_RejectPolicy(t *testing.T) {
	suite := newE2ESuite(t, service.SlugPolicyReject, false)

	t.Run("writes need login", suite.testWritesNeedLogin)
	suite.login(t)
	t.Run("post lifecycle", suite.testPostLifecycle)
	t.Run("conflicts rejected", suite.testConflictRejected)
	t.Run("validation", suite.testValidation)
	t.Run("public pages", suite.testPublicPages)
	t.Run("logout", suite.testLogout)
}

func TestE2E_SuffixPolicyWithCache(t *testing.T) {
	suite := newE2ESuite(t, service.SlugPolicySuffix, true)
	suite.login(t)

	first := suite.createPost(t, "Twin Title", "<p>one</p>")
	second := suite.createPost(t, "Twin, Title!", "<p>two</p>")
	third := suite.createPost(t, "twin title", "<p>three</p>")

	if first.Slug != "twin-title" || second.Slug != "twin-title-2" || third.Slug != "twin-title-3" {
		t.Fatalf("unexpected slugs: %s %s %s", first.Slug, second.Slug, third.Slug)
	}

	// 通过缓存读取后再改标题，旧 slug 必须失效
	suite.getPost(t, "twin-title-2", http.StatusOK)
	resp := suite.mustRequestJSON(t, suite.admin, http.MethodPut, "/api/posts/twin-title-2", map[string]interface{}{
		"title": "Renamed Twin", "content": "<p>two</p>",
	})
	expectStatus(t, resp, http.StatusOK)
	suite.getPost(t, "twin-title-2", http.StatusNotFound)
	suite.getPost(t, "renamed-twin", http.StatusOK)

	list := suite.listPosts(t)
	if len(list.Posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(list.Posts))
	}

	resp = suite.mustRequest(t, suite.public, http.MethodGet, "/metrics", nil, nil)
	body := readBody(t, resp)
	if !strings.Contains(body, "inkpost_slug_suffixed_total 2") {
		t.Fatalf("expected two suffixed slugs in metrics:\n%s", body)
	}
}

func (s *e2eSuite) login(t *testing.T) {
	t.Helper()
	form := url.Values{
		"username": {s.adminUser},
		"password": {s.adminPass},
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/admin/login", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("failed to create login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.admin.Do(req)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed, status %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testWritesNeedLogin(t *testing.T) {
	resp := s.mustRequestJSON(t, s.public, http.MethodPost, "/api/posts", map[string]interface{}{
		"title": "Anonymous", "content": "<p>x</p>",
	})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/posts", nil, nil)
	expectStatus(t, resp, http.StatusOK)
}

func (s *e2eSuite) testPostLifecycle(t *testing.T) {
	created := s.createPost(t, "Hello, World!", "<p>first body</p>")
	if created.Slug != "hello-world" {
		t.Fatalf("expected slug hello-world, got %s", created.Slug)
	}

	fetched := s.getPost(t, "hello-world", http.StatusOK)
	if fetched.ID != created.ID || fetched.Content != "<p>first body</p>" {
		t.Fatalf("unexpected fetched post: %+v", fetched)
	}

	time.Sleep(10 * time.Millisecond)

	// 仅修改正文：slug 与创建时间不变
	resp := s.mustRequestJSON(t, s.admin, http.MethodPut, "/api/posts/hello-world", map[string]interface{}{
		"title": "Hello, World!", "content": "<p>second body</p>",
	})
	var edited postEnvelope
	decodeJSON(t, expectStatus(t, resp, http.StatusOK), &edited)
	if edited.Post.Slug != "hello-world" {
		t.Fatalf("content-only edit changed slug to %s", edited.Post.Slug)
	}
	if !edited.Post.CreatedAt.Equal(fetched.CreatedAt) {
		t.Fatalf("createdAt changed: %v -> %v", fetched.CreatedAt, edited.Post.CreatedAt)
	}
	if !edited.Post.UpdatedAt.After(fetched.UpdatedAt) {
		t.Fatalf("updatedAt did not advance: %v -> %v", fetched.UpdatedAt, edited.Post.UpdatedAt)
	}

	// 修改标题：slug 随之变化
	resp = s.mustRequestJSON(t, s.admin, http.MethodPut, "/api/posts/hello-world", map[string]interface{}{
		"title": "Goodbye World", "content": "<p>second body</p>",
	})
	var renamed postEnvelope
	decodeJSON(t, expectStatus(t, resp, http.StatusOK), &renamed)
	if renamed.Post.Slug != "goodbye-world" || renamed.Post.ID != created.ID {
		t.Fatalf("unexpected renamed post: %+v", renamed.Post)
	}
	s.getPost(t, "hello-world", http.StatusNotFound)
	s.getPost(t, "goodbye-world", http.StatusOK)

	resp = s.mustRequest(t, s.admin, http.MethodDelete, "/api/posts/goodbye-world", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	s.getPost(t, "goodbye-world", http.StatusNotFound)

	for _, p := range s.listPosts(t).Posts {
		if p.Slug == "goodbye-world" {
			t.Fatalf("deleted post still listed")
		}
	}
}

func (s *e2eSuite) testConflictRejected(t *testing.T) {
	s.createPost(t, "Unique Story", "<p>a</p>")

	resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/posts", map[string]interface{}{
		"title": "unique   story!!", "content": "<p>b</p>",
	})
	var body errorEnvelope
	decodeJSON(t, expectStatus(t, resp, http.StatusConflict), &body)
	if body.Error == "" {
		t.Fatalf("expected a conflict message")
	}

	other := s.createPost(t, "Other Story", "<p>c</p>")
	resp = s.mustRequestJSON(t, s.admin, http.MethodPut, "/api/posts/"+other.Slug, map[string]interface{}{
		"title": "Unique Story", "content": "<p>c</p>",
	})
	expectStatus(t, resp, http.StatusConflict)
	s.getPost(t, "other-story", http.StatusOK)
}

func (s *e2eSuite) testValidation(t *testing.T) {
	resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/posts", map[string]interface{}{
		"title": "***", "content": "<p><br></p>",
	})
	var body errorEnvelope
	decodeJSON(t, expectStatus(t, resp, http.StatusBadRequest), &body)

	fields := map[string]bool{}
	for _, f := range body.Fields {
		fields[f.Field] = true
	}
	if !fields["title"] || !fields["content"] {
		t.Fatalf("expected title and content errors, got %+v", body.Fields)
	}
}

func (s *e2eSuite) testPublicPages(t *testing.T) {
	s.createPost(t, "Reader Facing", "<p>Readable <em>text</em></p><script>alert('x')</script>")

	resp := s.mustRequest(t, s.public, http.MethodGet, "/", nil, nil)
	home := readBody(t, expectStatus(t, resp, http.StatusOK))
	if !strings.Contains(home, `/post/reader-facing`) {
		t.Fatalf("home page does not link the post")
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/post/reader-facing", nil, nil)
	page := readBody(t, expectStatus(t, resp, http.StatusOK))
	if strings.Contains(page, "<script>alert") {
		t.Fatalf("post page rendered unsanitized script")
	}
	if !strings.Contains(page, `<meta property="og:url" content="http://example.test/post/reader-facing">`) {
		t.Fatalf("post page misses og:url")
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/post/never-existed", nil, nil)
	missing := readBody(t, expectStatus(t, resp, http.StatusNotFound))
	if !strings.Contains(missing, "Post Not Found") {
		t.Fatalf("expected not found page")
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/healthz", nil, nil)
	expectStatus(t, resp, http.StatusOK)
}

func (s *e2eSuite) testLogout(t *testing.T) {
	resp := s.mustRequest(t, s.admin, http.MethodPost, "/admin/logout", nil, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/posts", map[string]interface{}{
		"title": "After Logout", "content": "<p>x</p>",
	})
	expectStatus(t, resp, http.StatusUnauthorized)
}

func (s *e2eSuite) createPost(t *testing.T, title, content string) postJSON {
	t.Helper()
	resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/posts", map[string]interface{}{
		"title": title, "content": content,
	})
	var created postEnvelope
	decodeJSON(t, expectStatus(t, resp, http.StatusCreated), &created)
	return created.Post
}

func (s *e2eSuite) getPost(t *testing.T, slug string, code int) postJSON {
	t.Helper()
	resp := s.mustRequest(t, s.public, http.MethodGet, "/api/posts/"+slug, nil, nil)
	expectStatus(t, resp, code)
	var out postEnvelope
	if code == http.StatusOK {
		decodeJSON(t, resp, &out)
	} else {
		resp.Body.Close()
	}
	return out.Post
}

func (s *e2eSuite) listPosts(t *testing.T) listEnvelope {
	t.Helper()
	resp := s.mustRequest(t, s.public, http.MethodGet, "/api/posts", nil, nil)
	var out listEnvelope
	decodeJSON(t, expectStatus(t, resp, http.StatusOK), &out)
	return out
}

func (s *e2eSuite) mustRequest(t *testing.T, client httpClient, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("failed to build request %s %s: %v", method, path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func (s *e2eSuite) mustRequestJSON(t *testing.T, client httpClient, method, path string, payload map[string]interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	return s.mustRequest(t, client, method, path, bytes.NewReader(data), headers)
}

func expectStatus(t *testing.T, resp *http.Response, code int) *http.Response {
	t.Helper()
	if resp.StatusCode != code {
		t.Fatalf("expected status %d, got %d: %s", code, resp.StatusCode, readBody(t, resp))
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	body := readBody(t, resp)
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		t.Fatalf("failed to decode json: %v\nbody=%s", err, body)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(data)
}

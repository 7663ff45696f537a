// Package client, TMS API'si için Go client'ı.
//
// Client her isteğe store'daki access token'ı Bearer olarak ekler. 401
// alan istek bir kez tekrarlanır: gerekirse RefreshCoordinator üzerinden
// refresh cookie'si ile yeni token alınır. Aynı anda en fazla bir refresh
// yapılır; diğer istekler sonucu bekler.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg/cookies"
)

// APIError, sunucunun {success:false, title, message} yanıtı.
type APIError struct {
	Status  int    `json:"-"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Message)
}

// Client, eşzamanlı kullanıma uygundur. Refresh durumu her Client'a aittir.
type Client struct {
	baseURL     string
	base        *url.URL
	http        *http.Client
	store       TokenStore
	refresher   *RefreshCoordinator
	onLogout    func()
	waitTimeout time.Duration
}

// Option, Client ayarı.
type Option func(*Client)

// WithHTTPClient, kullanılacak http.Client. Client kopyalanır; jar'ı yoksa
// kopyaya yenisi eklenir.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithStore, access token store'u.
func WithStore(store TokenStore) Option {
	return func(c *Client) { c.store = store }
}

// WithOnLogout, refresh başarısız olup oturum kapandığında çağrılır.
func WithOnLogout(fn func()) Option {
	return func(c *Client) { c.onLogout = fn }
}

// WithWaitTimeout, kuyruktaki isteklerin refresh için bekleme sınırı.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *Client) { c.waitTimeout = d }
}

// New, baseURL'e (ör. "http://localhost:8080") istek atan bir Client oluşturur.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}

	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), base: u}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	} else {
		hc := *c.http
		c.http = &hc
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}

	c.refresher = NewRefreshCoordinator(c.RefreshToken, c.store, c.forceLogout, c.waitTimeout)
	return c, nil
}

// forceLogout, başarısız refresh sonrası çağrılır. Store'u coordinator
// temizler; burada jar'daki cookie'ler silinir.
func (c *Client) forceLogout() {
	c.clearCookies()
	if c.onLogout != nil {
		c.onLogout()
	}
}

// clearCookies, baseURL için access ve refresh cookie'lerini jar'dan siler.
func (c *Client) clearCookies() {
	u := *c.base
	u.Path = "/"
	c.http.Jar.SetCookies(&u, []*http.Cookie{
		{Name: cookies.AccessTokenName, Path: "/", MaxAge: -1},
		{Name: cookies.RefreshTokenName, Path: "/", MaxAge: -1},
	})
}

// Store, access token store'u döner.
func (c *Client) Store() TokenStore { return c.store }

// Refresher, client'ın RefreshCoordinator'ı.
func (c *Client) Refresher() *RefreshCoordinator { return c.refresher }

// Do, isteği Bearer token ile gönderir ve 401'de bir kez tekrar dener.
// Body tekrar gönderilebilmesi için belleğe alınır.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	sent := c.store.AccessToken()
	resp, err := c.send(req, sent)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	drain(resp)

	token, err := c.refresher.refresh(req.Context(), sent)
	if err != nil {
		return nil, err
	}
	return c.send(req, token)
}

func (c *Client) send(req *http.Request, token string) (*http.Response, error) {
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(r)
	if err != nil {
		return nil, err
	}
	c.captureAccessCookie(resp)
	return resp, nil
}

// captureAccessCookie, sunucunun sessiz yenilemede yazdığı access token'ı store'a alır.
func (c *Client) captureAccessCookie(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name != cookies.AccessTokenName {
			continue
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			c.store.Clear()
		} else {
			c.store.SetAccessToken(ck.Value)
		}
	}
}

func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to buffer request body: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// ─── Typed API ───

type loginResponse struct {
	ID          string `json:"id"`
	AccessToken string `json:"accessToken"`
}

// Register, yeni kullanıcı kaydeder.
func (c *Client) Register(ctx context.Context, req models.CreateUserRequest) (*models.PublicUser, error) {
	var out struct {
		User models.PublicUser `json:"user"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/user/register", req, &out, false); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login, giriş yapar ve access token'ı store'a yazar. Kullanıcı ID'sini döner.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out loginResponse
	err := c.call(ctx, http.MethodPost, "/api/v1/auth/user/login",
		models.LoginRequest{Email: email, Password: password}, &out, false)
	if err != nil {
		return "", err
	}
	c.store.SetAccessToken(out.AccessToken)
	c.refresher.Resume()
	return out.ID, nil
}

// Logout, refresh token'ı iptal ettirir. İstek başarısız olsa da yerel
// oturum (store ve cookie'ler) kapatılır.
func (c *Client) Logout(ctx context.Context) error {
	defer func() {
		c.refresher.End()
		c.clearCookies()
	}()
	return c.call(ctx, http.MethodPost, "/api/v1/auth/user/logout", nil, nil, false)
}

// RefreshToken, cookie jar'daki refresh token ile yeni access token alır.
// Interceptor'ı kullanmaz ve store'a yazmaz; RefreshCoordinator'ın takas fonksiyonudur.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/user/refresh-token", nil, &out, false); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// GetUser, kullanıcıyı getirir. Sadece kendisi veya Admin.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var out []models.User
	if err := c.call(ctx, http.MethodGet, "/api/v1/auth/user/"+url.PathEscape(id), nil, &out, true); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &APIError{Status: http.StatusNotFound, Title: "Not Found", Message: "User not found"}
	}
	return &out[0], nil
}

// CreateTask, görev oluşturur.
func (c *Client) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	var out struct {
		Data models.Task `json:"data"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/task", req, &out, true); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ListTasks, kullanıcının kendi görevleri.
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var out struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/task", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// ListAllTasks, tüm görevler (Admin).
func (c *Client) ListAllTasks(ctx context.Context) ([]models.TaskWithOwner, error) {
	var out struct {
		Tasks []models.TaskWithOwner `json:"tasks"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/task/all-tasks", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// SearchTasks, status ve/veya dd-mm-yyyy gününe göre arama. Boş parametreler gönderilmez.
func (c *Client) SearchTasks(ctx context.Context, status, dueDate string) ([]models.Task, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if dueDate != "" {
		q.Set("dueDate", dueDate)
	}

	path := "/api/v1/task/search"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// UpdateTask, görevi kısmen günceller.
func (c *Client) UpdateTask(ctx context.Context, id string, req models.UpdateTaskRequest) (*models.Task, error) {
	var out struct {
		Task models.Task `json:"task"`
	}
	if err := c.call(ctx, http.MethodPut, "/api/v1/task/"+url.PathEscape(id), req, &out, true); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

// DeleteTask, görevi siler.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/task/"+url.PathEscape(id), nil, nil, true)
}

// call, JSON isteği gönderir ve yanıtı out'a çözer. intercept false ise
// istek Bearer eklenmeden ve tekrar denenmeden gider.
func (c *Client) call(ctx context.Context, method, path string, in, out any, intercept bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var resp *http.Response
	if intercept {
		resp, err = c.Do(req)
	} else {
		resp, err = c.send(req, "")
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil && !errors.Is(err, io.EOF) {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

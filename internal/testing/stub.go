package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// StubReply is one scripted response from [SpotifyStub].
type StubReply struct {
	Status int
	Body   string
}

// Reply builds a [StubReply].
func Reply(status int, body string) StubReply {
	return StubReply{Status: status, Body: body}
}

// TokenJSON renders a token endpoint response. An empty refreshToken is omitted.
func TokenJSON(accessToken, refreshToken string) string {
	payload := map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        "user-top-read user-read-recently-played user-read-private user-read-email",
	}
	if refreshToken != "" {
		payload["refresh_token"] = refreshToken
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// APIError renders a Web API error body.
func APIError(status int, message string) string {
	return fmt.Sprintf(`{"error":{"status":%d,"message":%q}}`, status, message)
}

// SpotifyStub is an [httptest.Server] standing in for the accounts service and the Web API.
//
// Scripted replies are consumed in order; the last one repeats. Without a script the
// refresh grant mints "A1", "A2", … and API paths answer 404.
type SpotifyStub struct {
	Server *httptest.Server

	mu              sync.Mutex
	refreshReplies  []StubReply
	exchangeReplies []StubReply
	apiReplies      map[string][]StubReply
	validToken      string
	refreshDelay    time.Duration

	refreshTokens []string
	codes         []string
	apiCalls      map[string]int
	authHeaders   map[string][]string
	tokenCalls    int
}

// NewSpotifyStub starts a stub server that is closed when the test ends.
func NewSpotifyStub(t *testing.T) *SpotifyStub {
	t.Helper()

	s := &SpotifyStub{
		apiReplies:  map[string][]StubReply{},
		apiCalls:    map[string]int{},
		authHeaders: map[string][]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/token", s.serveToken)
	mux.HandleFunc("/v1/", s.serveAPI)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

func (s *SpotifyStub) AuthURL() string  { return s.Server.URL + "/authorize" }
func (s *SpotifyStub) TokenURL() string { return s.Server.URL + "/api/token" }
func (s *SpotifyStub) APIURL() string   { return s.Server.URL + "/v1" }

// OnRefresh scripts the responses to refresh_token grants.
func (s *SpotifyStub) OnRefresh(replies ...StubReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshReplies = replies
}

// OnExchange scripts the responses to authorization_code grants.
func (s *SpotifyStub) OnExchange(replies ...StubReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchangeReplies = replies
}

// OnAPI scripts the responses for a Web API path such as "/me".
func (s *SpotifyStub) OnAPI(path string, replies ...StubReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiReplies[path] = replies
}

// RequireToken makes every API call presenting a different bearer token answer 401.
func (s *SpotifyStub) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validToken = token
}

// SetRefreshDelay slows down refresh grants so concurrent callers overlap.
func (s *SpotifyStub) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// Refreshes returns the number of refresh_token grants received.
func (s *SpotifyStub) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refreshTokens)
}

// RefreshTokensSeen returns the refresh_token values received, in order.
func (s *SpotifyStub) RefreshTokensSeen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.refreshTokens...)
}

// Exchanges returns the number of authorization_code grants received.
func (s *SpotifyStub) Exchanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

// TokenRequests returns the number of requests of any kind made to the token endpoint.
func (s *SpotifyStub) TokenRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenCalls
}

// APICalls returns the number of calls made to a Web API path.
func (s *SpotifyStub) APICalls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiCalls[path]
}

// Authorizations returns the Authorization headers sent to a Web API path, in order.
func (s *SpotifyStub) Authorizations(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders[path]...)
}

func (s *SpotifyStub) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeStub(w, Reply(http.StatusBadRequest, `{"error":"invalid_request"}`))
		return
	}

	s.mu.Lock()
	s.tokenCalls++

	var reply StubReply
	switch r.PostForm.Get("grant_type") {
	case "refresh_token":
		s.refreshTokens = append(s.refreshTokens, r.PostForm.Get("refresh_token"))
		n := len(s.refreshTokens)
		reply = next(&s.refreshReplies, Reply(http.StatusOK, TokenJSON(fmt.Sprintf("A%d", n), "")))
		delay := s.refreshDelay
		s.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
	case "authorization_code":
		s.codes = append(s.codes, r.PostForm.Get("code"))
		reply = next(&s.exchangeReplies, Reply(http.StatusOK, TokenJSON("A-code", "R-code")))
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		reply = Reply(http.StatusBadRequest, `{"error":"unsupported_grant_type"}`)
	}

	writeStub(w, reply)
}

func (s *SpotifyStub) serveAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1")
	auth := r.Header.Get("Authorization")

	s.mu.Lock()
	s.apiCalls[path]++
	s.authHeaders[path] = append(s.authHeaders[path], auth)

	var reply StubReply
	if s.validToken != "" && auth != "Bearer "+s.validToken {
		reply = Reply(http.StatusUnauthorized, APIError(http.StatusUnauthorized, "The access token expired"))
	} else {
		queue := s.apiReplies[path]
		reply = next(&queue, Reply(http.StatusNotFound, APIError(http.StatusNotFound, "Service not found")))
		s.apiReplies[path] = queue
	}
	s.mu.Unlock()

	writeStub(w, reply)
}

// next pops the head of queue, repeating the last reply once only one is left.
func next(queue *[]StubReply, fallback StubReply) StubReply {
	switch len(*queue) {
	case 0:
		return fallback
	case 1:
		return (*queue)[0]
	default:
		head := (*queue)[0]
		*queue = (*queue)[1:]
		return head
	}
}

func writeStub(w http.ResponseWriter, reply StubReply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	w.Write([]byte(reply.Body))
}

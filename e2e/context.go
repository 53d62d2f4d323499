package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext carries the HTTP exchange state of one scenario.
type TestContext struct {
	BaseURL    string
	AdminToken string

	client       *http.Client
	accessToken  string
	lastStatus   int
	lastBody     []byte
	lastResponse any
	vars         map[string]string
}

// NewTestContext builds a context against a running verification service.
func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AdminToken: adminToken,
		client:     &http.Client{Timeout: 10 * time.Second},
		vars:       map[string]string{},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.accessToken = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastResponse = nil
	tc.vars = map[string]string{}
}

func (tc *TestContext) SetAccessToken(token string) { tc.accessToken = token }
func (tc *TestContext) GetAccessToken() string      { return tc.accessToken }
func (tc *TestContext) GetAdminToken() string       { return tc.AdminToken }
func (tc *TestContext) GetLastStatusCode() int      { return tc.lastStatus }

func (tc *TestContext) SetVar(name, value string) { tc.vars[name] = value }
func (tc *TestContext) GetVar(name string) string { return tc.vars[name] }

// POST sends body as JSON with the current access token, if any.
func (tc *TestContext) POST(path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(raw), nil)
}

// GET sends a request with the current access token plus headers.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 {
		_ = json.Unmarshal(tc.lastBody, &tc.lastResponse)
	}
	return nil
}

// GetResponseField resolves a dotted path ("workflow.current_step") in the
// last JSON object response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var cur any = tc.lastResponse
	for part := range strings.SplitSeq(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: response is not an object: %s", field, tc.lastBody)
		}
		if cur, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q not found in response: %s", field, tc.lastBody)
		}
	}
	return cur, nil
}

// ResponseContains reports whether field resolves in the last response.
func (tc *TestContext) ResponseContains(field string) bool {
	_, err := tc.GetResponseField(field)
	return err == nil
}

// GetResponseList returns the last response when it is a JSON array.
func (tc *TestContext) GetResponseList() ([]any, error) {
	list, ok := tc.lastResponse.([]any)
	if !ok {
		return nil, fmt.Errorf("response is not a list: %s", tc.lastBody)
	}
	return list, nil
}

// LastBody is the raw body of the last response.
func (tc *TestContext) LastBody() string { return string(tc.lastBody) }

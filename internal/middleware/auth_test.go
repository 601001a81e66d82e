package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/pagebox/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenVerifier struct {
	validTokens map[string]string // token -> username
}

func (v *fakeTokenVerifier) Verify(token string) (string, error) {
	username, ok := v.validTokens[token]
	if !ok {
		return "", errors.New("invalid or expired token")
	}
	return username, nil
}

func TestAuthMiddlewareHandler_AuthCheck(t *testing.T) {
	verifier := &fakeTokenVerifier{
		validTokens: map[string]string{
			"valid-token": "serj",
		},
	}
	authMiddleware := middleware.NewAuthMiddlewareHandler(verifier)

	testCases := []struct {
		name               string
		path               string
		method             string
		authHeader         string
		expectedStatusCode int
	}{
		{
			name:               "AllowedPathWithoutToken",
			path:               "/api/auth/login",
			method:             "POST",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "AllowedRegisterPathWithoutToken",
			path:               "/api/auth/register",
			method:             "POST",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "ProtectedPathWithoutToken",
			path:               "/api/pages",
			method:             "GET",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "ProtectedPathValidToken",
			path:               "/api/pages",
			method:             "GET",
			authHeader:         "Bearer valid-token",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "ProtectedPathInvalidToken",
			path:               "/api/pages",
			method:             "GET",
			authHeader:         "Bearer invalid-token",
			expectedStatusCode: http.StatusForbidden,
		},
		{
			name:               "ProtectedPathMalformedHeader",
			path:               "/api/pages",
			method:             "GET",
			authHeader:         "valid-token",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "OptionsAlwaysAllowed",
			path:               "/api/pages",
			method:             "OPTIONS",
			expectedStatusCode: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, tc.path, nil)
			require.NoError(t, err)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			rr := httptest.NewRecorder()
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
			authMiddleware.AuthCheck()(handler).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
		})
	}
}

func TestAuthMiddlewareHandler_SubjectInContext(t *testing.T) {
	verifier := &fakeTokenVerifier{
		validTokens: map[string]string{
			"valid-token": "serj",
		},
	}
	authMiddleware := middleware.NewAuthMiddlewareHandler(verifier)

	var gotSubject string
	var subjectFound bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, subjectFound = middleware.SubjectFromContext(r.Context())
	})

	req, err := http.NewRequest("GET", "/api/pages", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer valid-token")

	rr := httptest.NewRecorder()
	authMiddleware.AuthCheck()(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, subjectFound)
	assert.Equal(t, "serj", gotSubject)
}

func TestBearerToken(t *testing.T) {
	testCases := []struct {
		name     string
		header   string
		expected string
	}{
		{name: "valid", header: "Bearer abc123", expected: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", expected: "abc123"},
		{name: "missing", header: "", expected: ""},
		{name: "no scheme", header: "abc123", expected: ""},
		{name: "wrong scheme", header: "Basic abc123", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest("GET", "/", nil)
			require.NoError(t, err)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			assert.Equal(t, tc.expected, middleware.BearerToken(req))
		})
	}
}

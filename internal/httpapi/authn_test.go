package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def", "abc.def", false},
		{"bearer   abc", "abc", false},
		{"", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"Bearer   ", "", true},
	}
	for _, tt := range tests {
		got, err := extractBearerToken(tt.header)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		assert.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got)
	}
}

func TestIsPublicPath(t *testing.T) {
	assert.True(t, isPublicPath("/healthz"))
	assert.True(t, isPublicPath("/v1/auth/login"))
	assert.False(t, isPublicPath("/v1/auth/login/extra"))
	assert.False(t, isPublicPath("/v1/cases"))
}

func TestPathParts(t *testing.T) {
	assert.Nil(t, pathParts("/v1/cases/", "/v1/cases/"))
	assert.Equal(t, []string{"MOP-2026-001", "history"}, pathParts("/v1/cases/MOP-2026-001/history/", "/v1/cases/"))
}

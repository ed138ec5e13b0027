package aiquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "aiquery-workers/internal/common/errors"
	"aiquery-workers/internal/models"
)

const (
	orgA = "0a000000-0000-0000-0000-00000000000a"
	orgB = "0b000000-0000-0000-0000-00000000000b"
)

func TestCanAccessOrg(t *testing.T) {
	org := models.NewOrgContext("u1", "Ann", orgA)
	global := models.NewGlobalContext("root", "Root", "")

	assert.True(t, CanAccessOrg(org, orgA))
	assert.False(t, CanAccessOrg(org, orgB))
	assert.False(t, CanAccessOrg(org, ""))

	assert.True(t, CanAccessOrg(global, orgA))
	assert.True(t, CanAccessOrg(global, orgB))
	assert.True(t, CanAccessOrg(global, "anything"))
}

func TestCanQueryCrossOrg(t *testing.T) {
	assert.False(t, CanQueryCrossOrg(models.NewOrgContext("u1", "Ann", orgA)))
	assert.True(t, CanQueryCrossOrg(models.NewGlobalContext("root", "Root", "")))
	assert.False(t, CanQueryCrossOrg(models.AIQueryContext{}))
}

func TestEnforceOrgScope(t *testing.T) {
	tests := []struct {
		name      string
		qc        models.AIQueryContext
		requested string
		want      string
		wantCode  apperrors.ErrorCode
		wantMsg   string
	}{
		{
			name:      "own org",
			qc:        models.NewOrgContext("u1", "Ann", orgA),
			requested: orgA,
			want:      orgA,
		},
		{
			name:      "other org denied",
			qc:        models.NewOrgContext("u1", "Ann", orgA),
			requested: orgB,
			wantCode:  apperrors.ErrCodeAccessDenied,
			wantMsg:   "Access denied",
		},
		{
			name: "defaults to the single allowed org",
			qc:   models.NewOrgContext("u1", "Ann", orgA),
			want: orgA,
		},
		{
			name:      "global may request any org",
			qc:        models.NewGlobalContext("root", "Root", ""),
			requested: orgB,
			want:      orgB,
		},
		{
			name: "global falls back to active org",
			qc:   models.NewGlobalContext("root", "Root", orgB),
			want: orgB,
		},
		{
			name:     "global without active org",
			qc:       models.NewGlobalContext("root", "Root", ""),
			wantCode: apperrors.ErrCodeMissingOrgScope,
			wantMsg:  "No organization specified",
		},
		{
			name:      "whitespace counts as omitted",
			qc:        models.NewOrgContext("u1", "Ann", orgA),
			requested: "  ",
			want:      orgA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EnforceOrgScope(tt.qc, tt.requested)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			assert.Empty(t, got)
			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.wantMsg, stdErr.Message)
		})
	}
}

func TestRequireCrossOrg(t *testing.T) {
	assert.NoError(t, RequireCrossOrg(models.NewGlobalContext("root", "Root", "")))

	err := RequireCrossOrg(models.NewOrgContext("u1", "Ann", orgA))
	require.Error(t, err)
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAccessDenied, stdErr.Code)
	assert.Equal(t, "Cross-org queries require super user access", stdErr.Message)
}

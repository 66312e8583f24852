package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/shared/errors"
)

func TestErrorResponseWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantReason string
	}{
		{
			name:       "rated takeback maps to forbidden",
			err:        errors.NewForbiddenError("takeback not allowed").WithReason(errors.ReasonTakebackNotAllowed),
			wantStatus: http.StatusForbidden,
			wantType:   string(errors.ErrorTypeForbidden),
			wantReason: errors.ReasonTakebackNotAllowed,
		},
		{
			name:       "wrapped conflict keeps status",
			err:        fmt.Errorf("enqueue: %w", errors.NewConflictError("already active").WithReason(errors.ReasonAlreadyInQueue)),
			wantStatus: http.StatusConflict,
			wantType:   string(errors.ErrorTypeConflict),
			wantReason: errors.ReasonAlreadyInQueue,
		},
		{
			name:       "plain error hides details",
			err:        fmt.Errorf("dial tcp: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantType:   string(errors.ErrorTypeInternal),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponseWithError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantType, resp.Error.Type)
			assert.Equal(t, tt.wantReason, resp.Error.Reason)
			assert.NotContains(t, resp.Error.Message, "connection refused")
		})
	}
}

package controller

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/usecase"
	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{messaging.ErrValidation, http.StatusBadRequest},
		{messaging.ErrUnauthorized, http.StatusForbidden},
		{messaging.ErrNotFound, http.StatusNotFound},
		{messaging.ErrFanout, http.StatusInternalServerError},
		{usecase.ErrPersistence, http.StatusInternalServerError},
		// Unclassified errors are server failures, never a client mistake.
		{errors.New("unexpected failure"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

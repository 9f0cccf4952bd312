package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/dto"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorResponseFor(t *testing.T, err error) (int, dto.ErrorResponse) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return respondError(c, err) })

	resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, testErr)
	defer resp.Body.Close()

	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestRespondErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"version conflict", services.ErrVersionConflict, fiber.StatusConflict, "version_conflict"},
		{"already resolved", &services.AlreadyResolvedError{Status: models.StatusApproved}, fiber.StatusConflict, "already_resolved"},
		{"not claimed", services.ErrNotClaimedByActor, fiber.StatusConflict, "not_claimed_by_actor"},
		{"not active", services.ErrNotActive, fiber.StatusConflict, "not_active"},
		{"not found", services.ErrNotFound, fiber.StatusNotFound, "not_found"},
		{"permission", &services.PermissionError{Required: models.TierHeadModerator}, fiber.StatusForbidden, "permission_denied"},
		{"wrapped not found", fmt.Errorf("lookup: %w", services.ErrNotFound), fiber.StatusNotFound, "not_found"},
		{"storage fault", errors.New("disk full"), fiber.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorResponseFor(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.True(t, body.Error)
		})
	}
}

func TestRespondErrorCarriesStructuredData(t *testing.T) {
	holder := uuid.New()
	status, body := errorResponseFor(t, &services.AlreadyClaimedError{By: holder})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "already_claimed", body.Code)
	require.NotNil(t, body.ClaimedBy)
	assert.Equal(t, holder, *body.ClaimedBy)

	_, body = errorResponseFor(t, &services.InvalidTransitionError{From: models.StatusDraft, To: models.StatusApproved})
	assert.Equal(t, "invalid_transition", body.Code)
	assert.Equal(t, "draft", body.From)
	assert.Equal(t, "approved", body.To)

	status, body = errorResponseFor(t, &services.ValidationError{Field: "details", Reason: "too short"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "details", body.Field)

	blocking := uuid.New()
	_, body = errorResponseFor(t, &services.AlreadyRestrictedError{RestrictionID: blocking})
	assert.Equal(t, "already_restricted", body.Code)
	require.NotNil(t, body.Blocking)
	assert.Equal(t, blocking, *body.Blocking)

	_, body = errorResponseFor(t, &services.AlreadyRestrictedError{})
	assert.Nil(t, body.Blocking)
}

func TestRespondErrorHidesStorageFaults(t *testing.T) {
	_, body := errorResponseFor(t, errors.New("pq: connection refused"))
	assert.Equal(t, "Internal server error", body.Message)
}

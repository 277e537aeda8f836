package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nearbuy/pkg/errors"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAppErrorCarriesStatusAndDetails(t *testing.T) {
	c, rec := newContext()

	err := apperrors.Gone("QR code expired").WithDetails("Expired at 2024-05-01T10:00:00Z")
	require.NoError(t, Error(c, err))

	assert.Equal(t, http.StatusGone, rec.Code)
	body := decode(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "GONE", body.Error.Code)
	assert.Equal(t, "QR code expired", body.Error.Message)
	assert.Equal(t, "Expired at 2024-05-01T10:00:00Z", body.Error.Details)
}

func TestUnknownErrorIsGenericInProduction(t *testing.T) {
	SetEnvironment("production")
	defer SetEnvironment("development")

	c, rec := newContext()
	require.NoError(t, Error(c, fmt.Errorf("pq: connection refused")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "An unexpected error occurred", body.Error.Message)
	assert.Nil(t, body.Error.Details)
}

func TestValidationErrorsBecome400(t *testing.T) {
	type payload struct {
		Rating int `validate:"min=1,max=5"`
	}
	verr := validator.New().Struct(payload{Rating: 6})
	require.Error(t, verr)

	c, rec := newContext()
	require.NoError(t, Error(c, verr))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "rating must be at most 5", body.Error.Message)
}

func TestHTTPErrorHandlerWrapsEchoErrors(t *testing.T) {
	c, rec := newContext()
	HTTPErrorHandler(echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token"), c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	assert.Equal(t, "Invalid or expired token", body.Error.Message)
}

func TestPaginated(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, Paginated(c, []int{1, 2}, 5, 1, 2))

	var body struct {
		Data PaginatedResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Data.TotalPages)
}

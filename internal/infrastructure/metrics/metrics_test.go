package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, event string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, TransactionEvents.WithLabelValues(event).Write(&m))
	return m.GetCounter().GetValue()
}

func TestTransactionEventsCounter(t *testing.T) {
	before := counterValue(t, EventConfirmed)
	TransactionEvents.WithLabelValues(EventConfirmed).Inc()
	assert.Equal(t, before+1, counterValue(t, EventConfirmed))
}

func TestHandlerExposesRegistry(t *testing.T) {
	ChatMessages.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "nearbuy_chat_messages_total")
	assert.Contains(t, string(body), "go_goroutines")
}

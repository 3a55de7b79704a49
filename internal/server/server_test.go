package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	adactor "github.com/berfenger/axpert2mqtt/internal/adapter/actor"
	"github.com/berfenger/axpert2mqtt/internal/core/port"
	"github.com/berfenger/axpert2mqtt/internal/core/service"
	"github.com/berfenger/axpert2mqtt/internal/util/actorutil"
	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestServer routes requests straight to an inverter actor backed by the
// in-process test device.
func newTestServer(t *testing.T, fake *axpert.TestDevice) (*Server, *service.Metrics) {
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	metrics := service.NewMetrics()

	newClient := func(scheduler axpert.Scheduler, publisher axpert.Publisher) port.InverterClient {
		endpoint := axpert.Endpoint{Host: "inverter.local", Port: 8899, Timeout: 300 * time.Millisecond}
		return axpert.NewDevice(axpert.InverterModel, endpoint,
			axpert.WithDialer(fake),
			axpert.WithLogger(logger),
			axpert.WithScheduler(scheduler),
			axpert.WithPublisher(publisher),
			axpert.WithInstrument(metrics.Instrument()))
	}
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewInverterActor(newClient, nil, metrics, logger)
	}))
	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Shutdown()
	})

	return &Server{
		rootContext: as.Root,
		masterActor: pid,
		metrics:     metrics,
		timeout:     5 * time.Second,
	}, metrics
}

func serve(s *Server, method string, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheckRoute(t *testing.T) {

	assert := assert.New(t)

	s, _ := newTestServer(t, axpert.NewTestInverter())

	rec := serve(s, http.MethodGet, "/healthcheck", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("health_check: OK", rec.Body.String())
}

func TestReadingRoutes(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	s, _ := newTestServer(t, axpert.NewTestInverter())

	rec := serve(s, http.MethodGet, "/api/readings/"+axpert.READING_BATTERY_VOLTAGE, "")
	require.Equal(http.StatusOK, rec.Code)
	var reading readingResponse
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &reading))
	assert.Equal(axpert.READING_BATTERY_VOLTAGE, reading.Name)
	assert.Equal(52.1, reading.Value)

	rec = serve(s, http.MethodGet, "/api/readings", "")
	require.Equal(http.StatusOK, rec.Code)
	var readings map[string]any
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &readings))
	assert.Equal("Line", readings[axpert.READING_STATE])

	rec = serve(s, http.MethodGet, "/api/readings/Humidity", "")
	assert.Equal(http.StatusNotFound, rec.Code)
}

func TestSetParameterRoute(t *testing.T) {

	assert := assert.New(t)

	fake := axpert.NewTestInverter().
		Respond("POP01", axpert.ResponseFrame("ACK")).
		Respond("PCVV56.4", axpert.ResponseFrame("NAK"))
	s, _ := newTestServer(t, fake)

	rec := serve(s, http.MethodPut, "/api/settings/"+axpert.READING_OUTPUT_SOURCE_PRIORITY, "SolarFirst\n")
	assert.Equal(http.StatusNoContent, rec.Code)

	rec = serve(s, http.MethodPut, "/api/settings/"+axpert.READING_BATTERY_BULK_VOLTAGE, "56.4")
	assert.Equal(http.StatusBadGateway, rec.Code)

	rec = serve(s, http.MethodPut, "/api/settings/"+axpert.READING_OUTPUT_SOURCE_PRIORITY, "Grid")
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = serve(s, http.MethodPut, "/api/settings/Humidity", "1")
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestMetricsRoute(t *testing.T) {

	assert := assert.New(t)

	s, _ := newTestServer(t, axpert.NewTestInverter())

	rec := serve(s, http.MethodGet, "/api/readings/"+axpert.READING_SOLAR_POWER, "")
	assert.Equal(http.StatusOK, rec.Code)

	rec = serve(s, http.MethodGet, "/metrics", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), "axpert_exchange_duration_seconds")
	assert.Contains(rec.Body.String(), "go_goroutines")
}

func TestErrorStatus(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(http.StatusBadRequest, errorStatus(axpert.ErrUnknownValue))
	assert.Equal(http.StatusNotFound, errorStatus(axpert.ErrNotFound))
	assert.Equal(http.StatusBadGateway, errorStatus(&axpert.SetFailedError{Command: "POP01", Response: []byte("(NAK")}))
	assert.Equal(http.StatusGatewayTimeout, errorStatus(&axpert.SetFailedError{Command: "POP01", Err: axpert.ErrTimeout}))
	assert.Equal(http.StatusServiceUnavailable, errorStatus(axpert.ErrTransport))
}

package service

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveReadings(t *testing.T) {

	assert := assert.New(t)

	m := NewMetrics()

	m.ObserveReadings(axpert.Readings{
		axpert.READING_STATE:           "Line",
		axpert.READING_SOLAR_POWER:     920.0,
		axpert.READING_BATTERY_VOLTAGE: 52.1,
	})

	assert.Equal(1.0, testutil.ToFloat64(m.PollCycles.WithLabelValues(RESULT_OK)))
	assert.Equal(920.0, testutil.ToFloat64(m.Readings.WithLabelValues(axpert.READING_SOLAR_POWER)))
	assert.Equal(52.1, testutil.ToFloat64(m.Readings.WithLabelValues(axpert.READING_BATTERY_VOLTAGE)))
	// text readings are not exported as gauges
	assert.Equal(2, testutil.CollectAndCount(m.Readings))

	// an offline device exports no stale values
	m.ObserveReadings(axpert.Readings{axpert.READING_STATE: axpert.STATE_OFFLINE})
	assert.Equal(1.0, testutil.ToFloat64(m.PollCycles.WithLabelValues(RESULT_OFFLINE)))
	assert.Equal(0, testutil.CollectAndCount(m.Readings))
}

func TestObserveSet(t *testing.T) {

	assert := assert.New(t)

	m := NewMetrics()

	m.ObserveSet(axpert.READING_CHARGER_PRIORITY, nil)
	m.ObserveSet(axpert.READING_CHARGER_PRIORITY, &axpert.SetFailedError{Command: "PCP03", Response: []byte("(NAK")})
	m.ObserveSet(axpert.READING_BATTERY_BULK_VOLTAGE, axpert.ErrUnknownValue)
	m.ObserveSet(axpert.READING_BATTERY_BULK_VOLTAGE, errors.New("boom"))
	m.ObserveSet(axpert.READING_OUTPUT_SOURCE_PRIORITY, &axpert.SetFailedError{Command: "POP01", Err: axpert.ErrTimeout})
	m.ObserveSet(axpert.READING_OUTPUT_SOURCE_PRIORITY, &axpert.SetFailedError{Command: "POP01", Err: axpert.ErrTransport})

	assert.Equal(1.0, testutil.ToFloat64(m.SetCommands.WithLabelValues(axpert.READING_CHARGER_PRIORITY, RESULT_OK)))
	assert.Equal(1.0, testutil.ToFloat64(m.SetCommands.WithLabelValues(axpert.READING_CHARGER_PRIORITY, RESULT_REJECTED)))
	assert.Equal(1.0, testutil.ToFloat64(m.SetCommands.WithLabelValues(axpert.READING_BATTERY_BULK_VOLTAGE, RESULT_INVALID)))
	assert.Equal(1.0, testutil.ToFloat64(m.SetCommands.WithLabelValues(axpert.READING_BATTERY_BULK_VOLTAGE, RESULT_ERROR)))
	// a set that never got an answer is not a rejection
	assert.Equal(2.0, testutil.ToFloat64(m.SetCommands.WithLabelValues(axpert.READING_OUTPUT_SOURCE_PRIORITY, RESULT_ERROR)))
	assert.Equal(0.0, testutil.ToFloat64(m.SetCommands.WithLabelValues(axpert.READING_OUTPUT_SOURCE_PRIORITY, RESULT_REJECTED)))
}

func TestInstrumentAndHandler(t *testing.T) {

	assert := assert.New(t)

	m := NewMetrics()
	instrument := m.Instrument()
	instrument.RecordTime("query", 120*time.Millisecond)

	assert.Equal(1, testutil.CollectAndCount(m.Exchanges))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(200, rec.Code)
	assert.True(strings.Contains(rec.Body.String(), "axpert_exchange_duration_seconds_count"))
	assert.True(strings.Contains(rec.Body.String(), "go_goroutines"))
}

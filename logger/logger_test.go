package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetUIMode_RoutesLogThroughProvidedSink(t *testing.T) {
	var captured string
	Log = func(msg string) { captured = msg }
	SetUIMode(true)
	defer SetUIMode(false)

	Info("hello %s", "world")
	assert.Contains(t, captured, "hello world")
}

func TestSetUIMode_FalseFallsBackToStdout(t *testing.T) {
	var captured string
	Log = func(msg string) { captured = msg }
	SetUIMode(false)

	Info("should not reach the UI sink")
	assert.Empty(t, captured)
}

func TestError_SendsErrorToSentryWhenConfigured(t *testing.T) {
	var captured error
	SetSentryCaptureException(func(err error) interface{} {
		captured = err
		return nil
	})
	defer SetSentryCaptureException(nil)

	sentinel := errors.New("boom")
	Error(sentinel, "failed: %v", sentinel)

	assert.Equal(t, sentinel, captured)
}

func TestError_NonErrorFirstArgDoesNotPanic(t *testing.T) {
	SetSentryCaptureException(nil)
	assert.NotPanics(t, func() {
		Error("a plain message with %d args", 3)
	})
}

func TestCycleSummary_PrintDoesNotPanicForAnyOutcome(t *testing.T) {
	assert.NotPanics(t, func() {
		CycleSummary{CameraID: 0, Healthy: true}.Print()
		CycleSummary{CameraID: 1, Healthy: false}.Print()
		CycleSummary{CameraID: 2, Err: errors.New("source unavailable")}.Print()
	})
}

func TestHTTPLogger_ReturnsConfiguredLogger(t *testing.T) {
	assert.NotNil(t, HTTPLogger())
}

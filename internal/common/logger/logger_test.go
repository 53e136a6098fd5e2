package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapWrapper_FieldsAndScoping(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).
		With(map[string]interface{}{"component": "dispatcher"}).
		WithError(errors.New("boom"))

	log.Warn("dispatch failed", map[string]interface{}{"intent": "list_leads"})

	entries := logs.All()
	assert.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "dispatcher", ctx["component"])
	assert.Equal(t, "list_leads", ctx["intent"])
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"unknown": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewStructured_BadOutputFallsBack(t *testing.T) {
	log := NewStructured("info", "json", "/nonexistent-dir/for/sure/log.txt")
	assert.NotNil(t, log)
	log.Info("still works", nil)
}

func TestNewTestLogger(t *testing.T) {
	NewTestLogger(t).Debug("hello", map[string]interface{}{"k": 1})
	NewNoOpLogger().Error("ignored", nil)
}

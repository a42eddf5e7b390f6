package utils

import (
	"context"
	"sync"
	"testing"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
	"go.uber.org/zap/zaptest"
)

// setupTestLogger sets up a test logger and returns a function to restore the original logger
func setupTestLogger(t *testing.T) func() {
	testLogger := zaptest.NewLogger(t)
	originalLogger := logger.Log
	logger.Log = testLogger
	return func() {
		logger.Log = originalLogger
	}
}

func TestSafeGo(t *testing.T) {
	// Initialize test logger
	cleanup := setupTestLogger(t)
	defer cleanup()

	// Test case 1: Function runs without panic
	successChan := make(chan bool, 1)
	SafeGo(func() {
		successChan <- true
	}, nil)

	select {
	case success := <-successChan:
		if !success {
			t.Error("Expected function to execute successfully")
		}
	case <-make(chan bool):
		t.Error("Function did not execute in time")
	}

	// Test case 2: Function panics and is recovered
	var wg sync.WaitGroup
	wg.Add(1)
	var recoveredPanic interface{}

	SafeGo(func() {
		defer wg.Done()
		panic("test panic")
	}, func(r interface{}, stack []byte) {
		recoveredPanic = r
	})

	wg.Wait()
	if recoveredPanic != "test panic" {
		t.Errorf("Expected panic to be recovered with 'test panic', got %v", recoveredPanic)
	}
}

func TestRecoverWithLog(t *testing.T) {
	cleanup := setupTestLogger(t)
	defer cleanup()

	ctx := logger.WithLogger(context.Background(), zaptest.NewLogger(t))

	// The deferred recovery must swallow the panic so the caller survives.
	ran := false
	func() {
		defer RecoverWithLog(ctx, "test operation")
		ran = true
		panic("test panic with context")
	}()

	if !ran {
		t.Error("Expected the function body to run before panicking")
	}

	// No panic: the defer is a no-op.
	func() {
		defer RecoverWithLog(ctx, "calm operation")
	}()
}

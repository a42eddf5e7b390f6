package server

import (
	"os"
	"testing"

	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

package service

import (
	"os"
	"testing"

	"github.com/TIANLI0/MarkerKit/utils"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	utils.Logger = zap.NewNop()
	os.Exit(m.Run())
}

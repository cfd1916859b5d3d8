package views

import (
	"testing"

	"github.com/Cyclone1070/butterfi/internal/ui/models"
	"github.com/stretchr/testify/assert"
)

func TestRenderStatus_Executing(t *testing.T) {
	state := models.State{
		StatusPhase:   models.PhaseExecuting,
		StatusMessage: "Staking 1.5 in strategy 1",
		Spinner:       createTestSpinner(),
	}

	result := RenderStatus(state)

	assert.Contains(t, result, "Staking 1.5 in strategy 1")
}

func TestRenderStatus_Done(t *testing.T) {
	state := models.State{
		StatusPhase:   models.PhaseDone,
		StatusMessage: "Staked",
	}

	result := RenderStatus(state)

	assert.Contains(t, result, "✔")
	assert.Contains(t, result, "Staked")
}

func TestRenderStatus_Error(t *testing.T) {
	result := RenderStatus(models.State{StatusPhase: models.PhaseError, StatusMessage: "Request failed"})

	assert.Contains(t, result, "✗ Request failed")
}

func TestRenderStatus_Thinking(t *testing.T) {
	state := models.State{
		StatusPhase: models.PhaseThinking,
		DotCount:    2,
		Spinner:     createTestSpinner(),
	}

	result := RenderStatus(state)

	assert.Contains(t, result, "Thinking..")
}

func TestRenderStatus_DefaultReadyWithAddress(t *testing.T) {
	state := models.State{UserAddress: "0x563a73211b9A0b777d6CE3944DcB1447a9833C2d"}

	result := RenderStatus(state)

	assert.Contains(t, result, "Ready")
	assert.Contains(t, result, "0x563a…3C2d")
}

package views

import (
	"testing"

	"github.com/Cyclone1070/butterfi/internal/reply"
	"github.com/Cyclone1070/butterfi/internal/ui/models"
	"github.com/stretchr/testify/assert"
)

func testPicker(command string, index int) *models.StrategyPicker {
	return &models.StrategyPicker{
		Command: command,
		Strategies: []reply.Strategy{
			{Label: "SimpleStake", Description: "5% APR", StrategyID: 1},
			{Label: "EasyStake", StrategyID: 3},
		},
		Index: index,
	}
}

func TestRenderPicker_WithSelection(t *testing.T) {
	result := RenderPicker(testPicker("/stake", 1))

	assert.Contains(t, result, "Stake in:")
	assert.Contains(t, result, "SimpleStake (id 1)")
	assert.Contains(t, result, "5% APR")
	assert.Contains(t, result, "▸ EasyStake (id 3)")
	assert.Contains(t, result, "Navigate")
}

func TestRenderPicker_WithdrawTitle(t *testing.T) {
	assert.Contains(t, RenderPicker(testPicker("/withdraw", 0)), "Withdraw from:")
}

func TestRenderPicker_Empty(t *testing.T) {
	assert.Empty(t, RenderPicker(nil))
	assert.Empty(t, RenderPicker(&models.StrategyPicker{}))
}

func TestRenderPicker_IndexOutOfBounds(t *testing.T) {
	result := RenderPicker(testPicker("/stake", 10))

	assert.Contains(t, result, "SimpleStake")
	assert.NotContains(t, result, "▸")
}

package views

import (
	"testing"

	"github.com/Cyclone1070/butterfi/internal/ui/models"
	"github.com/stretchr/testify/assert"
)

func TestRenderRoot_NormalState(t *testing.T) {
	messages := []models.Message{{Role: models.RoleUser, Content: "Hi"}}

	vp := createTestViewport()
	vp.SetContent(FormatChatContent(messages, 76, &MockMarkdownRenderer{}))

	state := models.State{
		Width:       80,
		Height:      24,
		Messages:    messages,
		Input:       createTestTextInput("typing..."),
		StatusPhase: models.PhaseReady,
		Viewport:    vp,
	}

	result := RenderRoot(state)

	assert.Contains(t, result, "Hi")
	assert.Contains(t, result, "typing...")
	assert.Contains(t, result, "Ready")
}

func TestRenderRoot_WithPicker(t *testing.T) {
	state := models.State{
		Width:    80,
		Height:   24,
		Picker:   testPicker("/stake", 0),
		Input:    createTestTextInput(""),
		Viewport: createTestViewport(),
	}

	result := RenderRoot(state)

	assert.Contains(t, result, "Stake in:")
	assert.Contains(t, result, "EasyStake")
}

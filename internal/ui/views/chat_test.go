package views

import (
	"errors"
	"testing"

	"github.com/Cyclone1070/butterfi/internal/ui/models"
	"github.com/stretchr/testify/assert"
)

func TestRenderChat_NoMessages(t *testing.T) {
	state := models.State{Messages: []models.Message{}}
	result := RenderChat(state)
	assert.Contains(t, result, "type /help")
}

func TestRenderChat_WithMessages(t *testing.T) {
	vp := createTestViewport()
	vp.SetContent("Rendered Content")

	state := models.State{
		Messages: []models.Message{{Role: models.RoleUser, Content: "Hello"}},
		Viewport: vp,
	}

	result := RenderChat(state)
	assert.Contains(t, result, "Rendered Content")
}

func TestFormatChatContent_Roles(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "recommend"},
		{Role: models.RoleAssistant, Content: "**SimpleStake**"},
		{Role: models.RoleError, Content: "gateway returned 502"},
	}
	renderer := &MockMarkdownRenderer{RenderFunc: func(s string, w int) (string, error) {
		return "<md>" + s + "</md>", nil
	}}

	result := FormatChatContent(messages, 80, renderer)

	assert.Contains(t, result, "You: recommend")
	assert.Contains(t, result, "<md>**SimpleStake**</md>")
	assert.Contains(t, result, "✗ gateway returned 502")
}

func TestFormatChatContent_RenderFailureFallsBack(t *testing.T) {
	renderer := &MockMarkdownRenderer{RenderFunc: func(string, int) (string, error) {
		return "", errors.New("bad style")
	}}

	result := FormatChatContent([]models.Message{{Role: models.RoleAssistant, Content: "plain"}}, 80, renderer)

	assert.Contains(t, result, "butterfi: plain")
}

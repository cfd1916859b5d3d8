package controller

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/butterfi/internal/provider"
	"github.com/Cyclone1070/butterfi/internal/tool"
)

const envelopeHeader = `You are Butter-Fi, a DeFi staking assistant. Answer the user's latest message using the tool results below.
Respond with ONLY a JSON object of exactly this shape, without prose around it and without code fences:
{"LLM_response": "<answer for the user>", "type": "EXECUTE_TRANSACTION" | "PURE_STRING_RESPONSE" | "WITHDRAW_POSITION", "strategies": [{"label": "<strategy name>", "description": "<why it fits>", "strategyID": <integer>, "stakeToken": "<0x address>"}]}
All three keys are required. "strategies" is always an array; use [] when no strategy applies.`

const legacyHeader = `I want your answer strictly follow this format:
1. A short description text with recommended options
2. Followed by JSON that includes an array named "protocols"

For example:
---
{A short description text}:
1. Earn 7% APR by staking in XX protocol.
2. Earn 13% APR by providing liquidity in OO finance.
{
"protocols": ["XX protocol", "OO finance"]
}
---`

const failureNote = "Some of these calls failed. Tell the user what could not be retrieved instead of guessing."

// withdrawKeywords mark a user message as asking to take funds out.
var withdrawKeywords = []string{
	"withdraw", "unstake", "un-stake", "redeem", "cash out", "pull out", "take out", "exit my", "remove my",
}

// wantsWithdrawal reports whether text reads as a withdrawal request.
func wantsWithdrawal(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range withdrawKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// trailingToolRun returns the maximal run of tool messages at the end of
// history.
func trailingToolRun(history []provider.Message) []provider.Message {
	start := len(history)
	for start > 0 && history[start-1].Role == provider.RoleTool {
		start--
	}
	return history[start:]
}

type toolGroup struct {
	name     string
	contents []string
	failed   bool
}

// groupByName groups tool messages by tool name in first-appearance order.
func groupByName(run []provider.Message) []toolGroup {
	var groups []toolGroup
	index := make(map[string]int)
	for _, msg := range run {
		i, ok := index[msg.ToolName]
		if !ok {
			i = len(groups)
			index[msg.ToolName] = i
			groups = append(groups, toolGroup{name: msg.ToolName})
		}
		groups[i].contents = append(groups[i].contents, msg.Content)
		if msg.IsError {
			groups[i].failed = true
		}
	}
	return groups
}

// synthesisView is the model input for SYNTHESIZING: everything except tool
// results and the assistant turns that requested them.
func synthesisView(instruction string, history []provider.Message) []provider.Message {
	view := make([]provider.Message, 0, len(history)+1)
	view = append(view, provider.Message{Role: provider.RoleSystem, Content: instruction})
	for _, msg := range history {
		if msg.Role == provider.RoleTool || msg.RequestsTools() {
			continue
		}
		view = append(view, msg)
	}
	return view
}

func latestUserInput(history []provider.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == provider.RoleUser {
			return history[i].Content
		}
	}
	return ""
}

// buildSynthesisPrompt renders the system instruction for one SYNTHESIZING
// step from the grouped tool results.
func buildSynthesisPrompt(groups []toolGroup, userInput, registry string, format Format) string {
	var b strings.Builder
	if format == FormatLegacy {
		b.WriteString(legacyHeader)
	} else {
		b.WriteString(envelopeHeader)
	}

	hasSearch, hasPositions := false, false
	for _, g := range groups {
		b.WriteString("\n\n")
		switch g.name {
		case tool.NameSearchProtocols:
			hasSearch = true
			writeResults(&b, "Knowledge base results", g)
			if format == FormatEnvelope {
				b.WriteString("\nThese results describe staking options. Set \"type\" to \"EXECUTE_TRANSACTION\" and list the strategies you recommend.\n")
				b.WriteString("Choose only from this registry and copy strategyID and stakeToken exactly:\n")
				b.WriteString(registry)
				b.WriteString("If none of them fits the request, explain why, set \"type\" to \"PURE_STRING_RESPONSE\" and use [].")
			} else {
				b.WriteString("\nRecommend options from these results only.")
			}
		case tool.NameCheckPositions:
			hasPositions = true
			writeResults(&b, "User positions", g)
			b.WriteString("\nSummarize the user's staked amounts and pending rewards.")
			if format == FormatEnvelope {
				b.WriteString("\n")
				b.WriteString(positionsHint(wantsWithdrawal(userInput), registry))
			}
		default:
			writeResults(&b, "Results of "+g.name, g)
		}
	}

	if hasSearch && hasPositions && format == FormatEnvelope {
		b.WriteString("\n\nBoth knowledge base results and user positions are present. Reconcile them in a single reply; a withdrawal request takes precedence over new recommendations.")
	}
	return b.String()
}

func writeResults(b *strings.Builder, title string, g toolGroup) {
	fmt.Fprintf(b, "## %s (%s)\n", title, g.name)
	b.WriteString(strings.Join(g.contents, "\n\n---\n\n"))
	if g.failed {
		b.WriteString("\n")
		b.WriteString(failureNote)
	}
}

func positionsHint(withdraw bool, registry string) string {
	if withdraw {
		return "The user wants to withdraw. Set \"type\" to \"WITHDRAW_POSITION\" and list the strategies with a non-zero amount_staked, " +
			"copying strategyID and stakeToken from this registry:\n" + registry
	}
	return "The user is only asking about their positions. Set \"type\" to \"PURE_STRING_RESPONSE\" and use [] for \"strategies\"."
}

// addressNote is the side-channel system note carrying the user's wallet.
func addressNote(address string) provider.Message {
	return provider.Message{
		Role:    provider.RoleSystem,
		Content: fmt.Sprintf("The user's connected wallet address is %s. Use it when the user asks about their own positions.", address),
	}
}

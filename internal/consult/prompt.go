package consult

import (
	"fmt"

	"github.com/minjae-dev/stockpulse/internal/contracts"
)

const systemPrompt = `You are a disciplined equity analyst. You receive a
structured technical and fundamental report for one stock and must answer
with exactly one JSON object embedded in your reply. Be conservative: prefer
lower ratings when signals conflict.`

const buyInstruction = `Evaluate whether this stock should be bought now.
Reply with one JSON object of the form:
{"rating": <0-100>, "confidence": <1-10>, "reasoning": "<2-4 sentences>",
 "entry_strategy": {"price": "<text>", "timing": "<text>"},
 "exit_strategy": {"profit_target": "<text>", "stop_loss": "<text>", "time_horizon": "<text>"}}`

const holdInstruction = `The requester already holds this stock (purchase
price given in the report). Evaluate whether to keep holding or sell.
Reply with one JSON object of the form:
{"action": "<hold|sell>", "rating": <0-100>, "confidence": <1-10>,
 "reasoning": "<2-4 sentences>",
 "exit_strategy": {"profit_target": "<text>", "stop_loss": "<text>", "time_horizon": "<text>"}}`

// buildUserPrompt composes the report and the mode-specific instruction.
func buildUserPrompt(mode contracts.AnalysisMode, symbol, reportText string) string {
	instruction := buyInstruction
	if mode == contracts.ModeHold {
		instruction = holdInstruction
	}

	return fmt.Sprintf("Symbol: %s\n\n%s\n\n---\n%s", symbol, reportText, instruction)
}

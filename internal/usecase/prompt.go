package usecase

import (
	"strings"

	"asic-advisor/internal/domain"
	"asic-advisor/internal/tools"
)

// Validation responses the model is instructed to return verbatim.
const (
	errBudgetRequired   = `{"error": "Budget is required"}`
	errHashrateRequired = `{"error": "Target hashrate is required"}`
	errPowerRequired    = `{"error": "Power cost is required"}`
	errOutOfScope       = `{"error": "Can only assist with ASIC model recommendation based on user stats"}`
	errOffTopic         = `{"error": "Cannot assist with unrelated questions; only ASIC model recommendation support"}`
)

func buildPromptMessages(history []domain.ChatMessage) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+1)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: buildSystemPrompt(latestUserMessage(history)),
	})
	return append(messages, history...)
}

func buildSystemPrompt(userStats string) string {
	return strings.Join([]string{
		"Role:",
		"You are a bitcoin mining expert and personal advisor for renting ASIC mining rigs.",
		"Follow the structured process below before giving a final decision.",
		"",
		"Goals:",
		goals(),
		"",
		"Tree of Thoughts Process:",
		treeOfThoughts(),
		"",
		"Final Report:",
		finalReport(),
		"",
		"Input (user stats JSON):",
		strings.TrimSpace(userStats),
		"",
		"Validation Rules:",
		validationRules(),
		"",
		"Execution Rules:",
		executionRules(),
		"",
		"Output Contract:",
		outputContract(),
	}, "\n")
}

func goals() string {
	return strings.Join([]string{
		"1) Rank the available ASIC models by cost efficiency (rental price against expected BTC revenue).",
		"2) Compare hashrate efficiency (TH/s per joule) and the impact of power cost.",
		"3) Recommend the best rental option for the given budget, target hashrate and runtime.",
		"4) Call out trade-offs such as a higher rental price in exchange for lower power draw.",
		`5) Tag each ASIC with every label that fits, for example "High-Efficiency", "Mining Optimized", "AI/ML Ready", "Budget-Friendly", "Energy Efficient", "Premium" or "Ultra High Speed".`,
	}, "\n")
}

func treeOfThoughts() string {
	return strings.Join([]string{
		"1) Brainstorming: list candidate ASIC models from the seller listings that fit the budget and hashrate needs, noting hashrate, power draw and rental cost.",
		"2) Evaluation: compute cost per TH/s and joules per TH for each candidate, and estimate daily BTC yield from network difficulty and power rates.",
		"3) Debate and prune: contrast the leading candidates on ROI, energy cost and reliability; drop models with poor ROI or high power draw.",
		"4) Synthesis: merge the findings into a ranked shortlist and explain why each top choice stands out.",
	}, "\n")
}

func finalReport() string {
	return strings.Join([]string{
		"- The top 3 ASIC models, ranked.",
		"- Key metrics for each: cost per TH, joules per TH, estimated daily profit.",
		"- A recommended rental duration and budget envelope.",
		"- A summary of trade-offs to inform the buyer's decision.",
	}, "\n")
}

func validationRules() string {
	return strings.Join([]string{
		"- If the input has no \"budget\" field, respond exactly: " + errBudgetRequired,
		"- If the input has no \"target_hashrate\" field, respond exactly: " + errHashrateRequired,
		"- If the input has no \"power_cost\" field, respond exactly: " + errPowerRequired,
		"- If the input is about anything other than ASIC rental recommendations, respond exactly: " + errOutOfScope,
		"- If the user asks an unrelated question, respond exactly: " + errOffTopic,
	}, "\n")
}

func executionRules() string {
	return strings.Join([]string{
		"- Use " + tools.SellerToolName + " for ASIC specifications, pricing and power metrics.",
		"- Use " + tools.BuyerToolName + " for existing renter requests when comparing demand.",
		"- Derive every cost and efficiency figure from tool output; never hardcode values.",
		"- Follow the Tree of Thoughts process strictly.",
		"- Do not introduce external or unverified data; rely only on the input JSON and tool output.",
	}, "\n")
}

func outputContract() string {
	return "Return a single valid JSON object with no commentary, shaped as " +
		`{"recommendations":[{"model":"<ASIC model>","cost_per_th":"<value>","power_efficiency":"<value>","estimated_profit":"<value>"}]}` +
		", or one of the validation error objects above."
}

func latestUserMessage(history []domain.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			return history[i].Content
		}
	}
	return ""
}

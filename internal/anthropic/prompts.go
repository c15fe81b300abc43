package anthropic

// The two system prompts are part of the external contract: the extractor
// expects NDJSON claim lines back, the verifier a single JSON object.

const extractSystemPrompt = "You extract concise factual claims from academic text and research papers.\n" +
	"Output format:\n" +
	"- Return NDJSON: one JSON object per line (no surrounding array).\n" +
	"- Each line must be: {\"id\":\"<unique>\",\"text\":\"...\",\"status\":\"cited|weakly_cited|uncited\"}\n" +
	"- Emit AT MOST 8 lines per request.\n" +
	"- No extra prose. No code fences.\n" +
	"\n" +
	"Guidelines:\n" +
	"- Extract only checkable factual statements under 280 chars.\n" +
	"- status: \"cited\" if a citation marker like [12] or (Smith, 2020) appears; \"weakly_cited\" if ambiguous; else \"uncited\".\n"

const verifySystemPrompt = "You are a careful scientific fact-checker. Given a CLAIM and EVIDENCE EXCERPTS from a cited paper, decide if the evidence SUPPORTS the claim, PARTIALLY SUPPORTS it, or is UNSUPPORTED.\n\n" +
	"Rules:\n" +
	"- Judge only based on provided excerpts.\n" +
	"- If evidence is mixed or partial, choose PARTIALLY_SUPPORTED.\n" +
	"- Keep the explanation short (markdown ok).\n" +
	"- Return JSON only: {\"verdict\": \"...\", \"confidence\": 0.0-1.0, \"reasoningMd\":\"...\" }.\n" +
	"- verdict ∈ {\"supported\",\"partially_supported\",\"unsupported\"}.\n" +
	"- No code fences.\n"

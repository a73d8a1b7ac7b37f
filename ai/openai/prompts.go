package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/vibecheck/core"
)

const predictionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "spans": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {
            "type": "string",
            "minLength": 1
          },
          "confidence": {
            "type": "number",
            "minimum": 0,
            "maximum": 1
          }
        },
        "required": ["text", "confidence"],
        "additionalProperties": false
      }
    }
  },
  "required": ["spans"],
  "additionalProperties": false
}`

const predictionPromptTemplate = `You are annotating passages from climate law and policy documents.
Mark every fragment of the passage that refers to the concept described below and return them as JSON.

%s

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Copy each fragment exactly as it appears in the passage. Do not paraphrase, translate or fix spelling.
- Keep fragments short: the words that express the concept, not the whole sentence.
- Confidence is a number from 0 (unsure) to 1 (certain).
- Do not mark fragments that only match a term listed under "Negative labels".
- If the passage does not refer to the concept, return {"spans": []}.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Concept: flood
Input: "Coastal flooding and river floods displaced 2,000 households."
Output:
{
  "spans": [
    {"text":"Coastal flooding","confidence":0.95},
    {"text":"river floods","confidence":0.9}
  ]
}

Example (negative passage):
Concept: flood
Input: "The ministry published its annual budget."
Output:
{"spans": []}`

// buildSystemPrompt embeds the concept definition in the system prompt.
func buildSystemPrompt(concept *core.Concept) string {
	return fmt.Sprintf(predictionPromptTemplate,
		strings.TrimSpace(concept.Markdown()),
		predictionResponseSchema)
}

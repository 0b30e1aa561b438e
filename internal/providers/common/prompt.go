package common

import (
	"fmt"
	"strings"
)

// BuildMonitorPrompt wraps an industry question with the instructions that make
// a chat provider return the structured AnswerEnvelope. The brand and
// competitor names are listed so the model tags mentions explicitly instead of
// leaving detection to string matching alone.
func BuildMonitorPrompt(question, brandName string, competitors []string) string {
	competitorList := "none provided"
	if len(competitors) > 0 {
		competitorList = strings.Join(competitors, ", ")
	}

	return fmt.Sprintf(`You are a knowledgeable industry analyst. Answer the question below the way you would for any user, then report which of the listed companies appear in your answer.

Companies to watch for:
- Target brand: %s
- Competitors: %s

Return ONLY a valid JSON object with this structure:

{
  "answer": "Your full answer to the question",
  "brand_mentioned": true,
  "brand_position": 1,
  "sentiment": "positive|neutral|negative|mixed",
  "confidence": "high|medium|low",
  "competitors": [{"name": "Company", "position": 2, "sentiment_score": 70}],
  "rankings": [{"position": 1, "company": "Company", "reason": "why it ranks here"}]
}

Set "brand_position" to the order of first mention (1 = first) or null if the target brand is absent. Include "rankings" only when the answer is an ordered list. Omit no keys; use null or empty arrays instead.

Question: %s

Remember: Return ONLY the JSON object, no other text.`, brandName, competitorList, question)
}

package generate

import "fmt"

const studySystemPrompt = `You are a study assistant that produces structured learning material. Respond with valid JSON only.`

const pathSystemPrompt = `You are a curriculum planner that designs day-by-day learning roadmaps. Respond with valid JSON only.`

func studyPackPrompt(title, difficulty, context string) string {
	return fmt.Sprintf(`Create study material for "%s" at %s difficulty from the content below.

Return a JSON object with exactly these keys:
- "summary": a concise study summary of the content
- "flashcards": an array of 8-10 objects with "question" and "answer"
- "questions": an array of 5 multiple-choice objects with "question", "options" (4 strings) and "correct_answer"

Difficulty guidance: easy favors recall, medium favors understanding, hard favors application and analysis.

Content:
%s`, title, difficulty, context)
}

func topicFallbackPrompt(title, sourceURL, difficulty string) string {
	return fmt.Sprintf(`No transcript or text is available for "%s" (%s). Using your general knowledge of the topic suggested by the title, create study material at %s difficulty.

Return a JSON object with exactly these keys:
- "summary": a concise study summary of the likely content
- "flashcards": an array of 8-10 objects with "question" and "answer"
- "questions": an array of 5 multiple-choice objects with "question", "options" (4 strings) and "correct_answer"`, title, sourceURL, difficulty)
}

func learningPathPrompt(goal string, days int) string {
	return fmt.Sprintf(`Design a %d-day learning roadmap for the goal: "%s".

Return a JSON object with a single key "days": an array of exactly %d objects, each with:
- "day": the day number starting at 1
- "topic": what to study that day
- "description": 1-2 sentences of concrete guidance

Order topics from fundamentals to advanced and keep each day achievable in 1-2 hours.`, days, goal, days)
}

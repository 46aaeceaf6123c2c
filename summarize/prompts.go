package summarize

import (
	"fmt"
	"strings"
)

func microSummaryPrompt(content string) string {
	return fmt.Sprintf(`Summarize the following excerpt from study material.

Rules:
- Output valid JSON with exactly three keys: "topic", "summary", "key_concepts"
- "topic": a short label for what this excerpt covers
- "summary": at most 100 words
- "key_concepts": a list of the concepts the excerpt teaches

Excerpt:
%s`, content)
}

func intermediatePrompt(batch []microSummary) string {
	var sb strings.Builder
	for i, m := range batch {
		fmt.Fprintf(&sb, "Section %d - %s:\n%s\nConcepts: %s\n\n",
			i+1, m.Topic, m.Summary, strings.Join(m.KeyConcepts, ", "))
	}

	return fmt.Sprintf(`Combine the following section summaries of one document into a single coherent summary.

Rules:
- Output valid JSON with exactly two keys: "theme", "summary"
- "theme": the common theme across these sections
- "summary": at most 150 words, merging the sections without repetition

Sections:
%s`, sb.String())
}

func masterPrompt(intermediates []intermediateSummary) string {
	var sb strings.Builder
	for i, inter := range intermediates {
		fmt.Fprintf(&sb, "Part %d - %s:\n%s\n\n", i+1, inter.Theme, inter.Summary)
	}

	return fmt.Sprintf(`Write the definitive master summary of a document from the part summaries below.

Rules:
- Start with the central theme in one sentence
- Then a summary of at most 700 words
- Then a list of the main topics covered
- Then how the key concepts relate to each other
- Plain text, no JSON

Parts:
%s`, sb.String())
}

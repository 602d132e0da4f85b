package ai

import (
	"fmt"
	"strings"

	"github.com/example/quizbot/pkg/models"
)

// BuildInstruction writes the natural-language request for a configuration
func BuildInstruction(config models.QuizConfiguration) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate a quiz of %s difficulty.\n", strings.ToLower(string(config.Difficulty)))
	fmt.Fprintf(&b, "Topic: %q.\n", config.EffectiveTopic())
	fmt.Fprintf(&b, "Number of questions: %d.\n", config.NumQuestions)

	if config.Mode == models.TrueFalse {
		b.WriteString("Mode: True/False.\n")
		b.WriteString("Every question must be a statement that is either true or false.\n")
		b.WriteString(`The "options" array must ALWAYS be exactly ["True", "False"], in that order.` + "\n")
	} else {
		b.WriteString("Mode: multiple choice.\n")
		fmt.Fprintf(&b, "Every question must have exactly %d options with exactly one correct option.\n", config.NumOptions)
	}

	if config.HasDocument() {
		b.WriteString("Use the attached document as the ONLY source of information for the questions.\n")
	} else {
		b.WriteString("Use your general knowledge of the topic to write the questions.\n")
	}

	fmt.Fprintf(&b, "Return exactly %d questions. ", config.NumQuestions)
	b.WriteString(`"correctIndex" is the 0-based index of the correct option in "options". `)
	b.WriteString(`"explanation" briefly says why the correct answer is right.`)

	return b.String()
}

// questionSchema describes one Question. Gemini expects upper-case type
// names, JSON Schema consumers expect lower-case ones.
func questionSchema(upper bool) map[string]interface{} {
	t := func(name string) string {
		if upper {
			return strings.ToUpper(name)
		}
		return name
	}

	schema := map[string]interface{}{
		"type": t("object"),
		"properties": map[string]interface{}{
			"question": map[string]interface{}{
				"type":        t("string"),
				"description": "The text of the question or statement.",
			},
			"options": map[string]interface{}{
				"type":        t("array"),
				"items":       map[string]interface{}{"type": t("string")},
				"description": `The possible answers. In True/False mode exactly ["True", "False"].`,
			},
			"correctIndex": map[string]interface{}{
				"type":        t("integer"),
				"description": "The 0-based index of the correct option.",
			},
			"explanation": map[string]interface{}{
				"type":        t("string"),
				"description": "A short explanation of why the answer is correct.",
			},
		},
		"required": []string{"question", "options", "correctIndex", "explanation"},
	}
	if !upper {
		schema["additionalProperties"] = false
	}
	return schema
}

// QuestionListSchema is the structured-output schema: an array of questions
func QuestionListSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":  "ARRAY",
		"items": questionSchema(true),
	}
}

package ai

import "google.golang.org/genai"

func stringSchema() *genai.Schema  { return &genai.Schema{Type: genai.TypeString} }
func integerSchema() *genai.Schema { return &genai.Schema{Type: genai.TypeInteger} }

func stringList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: stringSchema()}
}

func object(required []string, props map[string]*genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

func arrayOf(items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: items}
}

var studyPlanSchema = object([]string{"title", "days"}, map[string]*genai.Schema{
	"title": stringSchema(),
	"days": arrayOf(object([]string{"day", "topic", "scriptures", "reflection_question"}, map[string]*genai.Schema{
		"day":                 integerSchema(),
		"topic":               stringSchema(),
		"scriptures":          stringList(),
		"reflection_question": stringSchema(),
	})),
})

var quizSchema = object([]string{"title", "questions"}, map[string]*genai.Schema{
	"title": stringSchema(),
	"questions": arrayOf(object([]string{"question", "options", "correctAnswerIndex"}, map[string]*genai.Schema{
		"question":           stringSchema(),
		"options":            stringList(),
		"correctAnswerIndex": integerSchema(),
	})),
})

var crossReferenceSchema = object([]string{"mainScripture", "references"}, map[string]*genai.Schema{
	"mainScripture": stringSchema(),
	"references": arrayOf(object([]string{"scripture", "explanation"}, map[string]*genai.Schema{
		"scripture":   stringSchema(),
		"explanation": stringSchema(),
	})),
})

var journalSchema = object([]string{"summary", "principles", "suggestedScripture"}, map[string]*genai.Schema{
	"summary":            stringSchema(),
	"principles":         stringList(),
	"suggestedScripture": stringSchema(),
})

// responseSchema returns the strict output schema for a structured mode, or nil.
func responseSchema(mode Mode) *genai.Schema {
	switch mode {
	case ModeStudyPlan:
		return studyPlanSchema
	case ModeMultiQuiz:
		return quizSchema
	}
	return nil
}

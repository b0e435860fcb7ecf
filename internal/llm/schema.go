package llm

import (
	"github.com/google/generative-ai-go/genai"

	"github.com/atmb4u/gamegirl/internal/story"
)

// responseShapes maps each kind to the Go type its reply decodes into. The
// OpenAI provider derives JSON schemas from these.
var responseShapes = map[Kind]any{
	KindChoices:     story.Choices{},
	KindConsequence: story.Consequence{},
	KindAnswer:      story.Answer{},
}

func stringField(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

var choiceSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"emoji":       stringField("The emoji representing the choice."),
		"name":        stringField("The name of the choice."),
		"choice":      stringField("The description of the choice."),
		"choice_type": stringField("The type of the choice."),
	},
	Required: []string{"emoji", "name", "choice", "choice_type"},
}

var geminiSchemas = map[Kind]*genai.Schema{
	KindChoices: {
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"choices": {Type: genai.TypeArray, Items: choiceSchema},
		},
		Required: []string{"choices"},
	},
	KindConsequence: {
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"choice":      stringField("The action the player took."),
			"consequence": stringField("What happens next."),
			"plot":        stringField("A short summary of the plot."),
			"prose":       stringField("The whole story so far."),
		},
		Required: []string{"choice", "consequence", "plot", "prose"},
	},
	KindAnswer: {
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"answer": stringField("The answer to the player's question."),
		},
		Required: []string{"answer"},
	},
}

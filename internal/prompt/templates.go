package prompt

import "text/template"

const initialOptionsText = `Given the context:
{{.Context}}

Using an emoji as inspiration, generate 3 compelling options for the {{.Option}} of a fun, relatable,
coherent and thought-provoking storytelling game.
Draw quietly on philosophical ideas without naming authors or their exact concepts.
Give each option vivid, concrete details: names, traits, convictions, sharp adjectives.
Each option must be at most 20 words.
- Be relatable, realistic and grounded in the real world.
- Use plain language a teenager reads easily.
Every option has: emoji, name, choice (the description) and choice_type ("{{.Option}}").
`

const nextChoicesText = `Story summary: {{or .Plot "(the story has not started yet)"}}

Character: {{.Character}}
Setting: {{.Setting}}
Motivation: {{.Motivation}}
Prose: {{or .Prose "(none yet)"}}
{{- if .Actions}}

Recent actions:
{{- range .Actions}}
{{.Number}}. {{.Action}} -> {{.Consequence}}
{{- end}}
{{- end}}

Generate 3 distinct choices for the next stage of the story. For each choice pick the most
relevant event type from: character development, emotion or mental model, key revelation,
dialogue that drives action, change of setting, encounter, crisis, twist, new conflict,
resolution of a conflict, decision or turning point, change of perspective.

Each choice must:
- stay consistent with the character, setting, motivation, plot and past actions;
- introduce new elements only if the choice itself explains them;
- keep fantastical elements plausible;
- be fewer than 15 words and start with a fitting emoji;
- say clearly whether it is a change of environment or an action by the character;
- move towards a satisfying ending.
Use plain language. Return exactly 3 choices with emoji, name, choice and choice_type.
`

const questionText = `Story so far: {{or .Prose "(nothing has happened yet)"}}
Motivation: {{.Motivation}}
Plot: {{or .Plot "(none yet)"}}
Character: {{.Character}}
Setting: {{.Setting}}

Answer the player's question about the story above in under 150 words.
Question: {{.Question}}
`

const consequenceText = `Generate the consequence of the following action in the story game.
Action: {{.Action}}
Character: {{.Character}}
Setting: {{.Setting}}
Plot: {{or .Plot "(none yet)"}}
Motivation: {{.Motivation}}
Story so far: {{or .Prose "(nothing has happened yet)"}}
{{- if .Actions}}
Past actions:
{{- range .Actions}}
{{.Number}}. {{.Action}} -> {{.Consequence}}
{{- end}}
{{- end}}

Be creative, causal and realistic, and respect the past actions.
Return four fields:
1. choice - the action the player took, in one sentence
2. consequence - what happens next, under 100 words
3. prose - the whole story so far including this consequence, written as a short story; keep every
   key fact from the earlier prose and stay consistent with it
4. plot - a short summary of the plot based on the prose
`

var (
	initialOptionsTmpl = template.Must(template.New("initial_options").Parse(initialOptionsText))
	nextChoicesTmpl    = template.Must(template.New("next_choices").Parse(nextChoicesText))
	questionTmpl       = template.Must(template.New("question").Parse(questionText))
	consequenceTmpl    = template.Must(template.New("consequence").Parse(consequenceText))
)

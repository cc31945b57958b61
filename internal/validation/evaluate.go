// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validation

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/insight-engine/internal/llm"
	"github.com/pdiddy/insight-engine/pkg/types"
)

type dimensionAnswer struct {
	Score       float64 `json:"score" jsonschema:"minimum=0,maximum=10"`
	Explanation string  `json:"explanation" jsonschema:"description=One or two sentences"`
}

type evaluationAnswer struct {
	Depth         dimensionAnswer `json:"depth"`
	Uniqueness    dimensionAnswer `json:"uniqueness"`
	Actionability dimensionAnswer `json:"actionability"`
	SourceQuality dimensionAnswer `json:"source_quality"`
	Summary       string          `json:"summary" jsonschema:"description=One sentence card summary"`
}

var evaluationSchema = llm.GenerateSchema[evaluationAnswer]()

var evaluationPromptTmpl = template.Must(template.New("evaluation").Parse(`Evaluate the research insights a founder kept for the category "{{.Category.Title}}".

Score each dimension from 0 to 10 and explain the score briefly:
- depth: how far the insights go beyond surface observations
- uniqueness: how specific they are to this idea rather than generic advice
- actionability: how directly the founder can act on them
- source_quality: how credible and traceable their sources are

Then write a one-sentence summary suitable for a result card.
{{- if .Language}}
Write explanations and the summary in the language with tag "{{.Language}}".
{{- end}}

Resonance: {{.Count}} of {{.Total}} insights kept.

Insights:
{{- range .Insights}}
- [{{.Resonance}}] {{.Content}} (source: {{.Source}}{{if .SourceURL}}, {{.URL}}{{end}}; score {{printf "%.1f" .Score}})
{{- end}}
`))

type evaluationPrompt struct {
	Category types.Category
	Language string
	Count    int
	Total    int
	Insights []types.Insight
}

// evaluate asks the evaluator for a qualitative assessment. Any failure,
// including a missing evaluator or timeout, yields the fallback.
func (s *Service) evaluate(ctx context.Context, cat types.Category, st stats, language string, log *zap.Logger) types.Evaluation {
	if s.evaluator == nil {
		return Fallback(st.average)
	}
	var prompt bytes.Buffer
	err := evaluationPromptTmpl.Execute(&prompt, evaluationPrompt{
		Category: cat,
		Language: language,
		Count:    st.count,
		Total:    len(st.insights),
		Insights: st.insights,
	})
	if err != nil {
		log.Warn("rendering evaluation prompt", zap.Error(err))
		return Fallback(st.average)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.evaluator.Generate(ctx, llm.Request{
		System:     "You are a rigorous startup research reviewer. Reply with JSON only.",
		User:       prompt.String(),
		SchemaName: "CategoryEvaluation",
		Schema:     evaluationSchema,
	})
	if err != nil {
		log.Warn("evaluation call failed, using fallback", zap.Error(err))
		return Fallback(st.average)
	}
	var ans evaluationAnswer
	if err := llm.DecodeJSON(out, &ans); err != nil {
		log.Warn("evaluation response did not parse, using fallback", zap.Error(err))
		return Fallback(st.average)
	}
	return types.Evaluation{
		Dimensions: []types.DimensionScore{
			dimension(types.DimensionDepth, ans.Depth),
			dimension(types.DimensionUniqueness, ans.Uniqueness),
			dimension(types.DimensionActionability, ans.Actionability),
			dimension(types.DimensionSourceQuality, ans.SourceQuality),
		},
		Summary: ans.Summary,
	}
}

func dimension(name string, a dimensionAnswer) types.DimensionScore {
	score := a.Score
	if math.IsNaN(score) || score < 0 {
		score = 0
	}
	return types.DimensionScore{Name: name, Score: math.Min(score, 10), Explanation: a.Explanation}
}

// Fallback scores every dimension with the category's average score.
func Fallback(average float64) types.Evaluation {
	ev := types.Evaluation{
		Summary:  fmt.Sprintf("Average score of kept insights: %.1f/10.", average),
		Fallback: true,
	}
	for _, name := range types.EvaluationDimensions {
		ev.Dimensions = append(ev.Dimensions, types.DimensionScore{
			Name:        name,
			Score:       average,
			Explanation: "Based on the average score of the insights you kept.",
		})
	}
	return ev
}

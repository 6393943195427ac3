package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Level assessment
// ============================================================================

// analysisTemplate asks for a CEFR level as a single JSON object.
// Placeholders: language name (twice), text sample.
const analysisTemplate = `Assess CEFR level (A1-C2) of %s text. Consider vocabulary complexity, grammar structures, sentence complexity.

%s text:
"%s"

Return ONLY valid JSON:
{"cefr_level":"B2","confidence":"high","vocabulary_examples":["word1","word2","word3"],"grammar_features":["feature1","feature2"],"reasoning":"Brief explanation"}`

// Analysis builds the level-assessment prompt for a text sample.
func Analysis(languageName, sample string) string {
	return fmt.Sprintf(analysisTemplate, languageName, languageName, sample)
}

// ============================================================================
// Definitions
// ============================================================================

const definitionSuffix = `. Provide the definition and translation in English. Return JSON:
{"definition":"... (in English)","translation":"... (in English)","cefr":"B2","type":"noun/verb/adj/adv/connector"}`

// Definition builds the single-word definition prompt. context may be empty.
func Definition(languageName, word, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Define %s word "%s"`, languageName, word)
	if context != "" {
		fmt.Fprintf(&b, ` in context: "%s"`, context)
	}
	b.WriteString(definitionSuffix)
	return b.String()
}

const batchDefinitionTemplate = `Define these %s words: %s. Provide definitions and translations in English. Return JSON array:
[{"word":"word1","definition":"... (in English)","translation":"... (in English)","cefr":"B2","type":"noun"},...]`

// BatchDefinition builds the prompt defining several words in one call.
func BatchDefinition(languageName string, words []string) string {
	return fmt.Sprintf(batchDefinitionTemplate, languageName, strings.Join(words, ", "))
}

// ProbeMessage is the minimal message used to check the classifier API key.
const ProbeMessage = "Hi"

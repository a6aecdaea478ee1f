// Package prompt assembles the grounded generation request: a fixed system
// instruction, the retrieved context block, and the user's question.
package prompt

import (
	"fmt"
	"strings"
)

// SystemInstruction restricts the model to the supplied context. Kept fixed
// so answer grounding does not depend on configuration.
const SystemInstruction = "You answer questions based only on the context using logical reasoning. Keep your answers short and concise."

const userTemplate = `You are a helpful assistant answering questions based only on the provided context.

Context:
%s

Question: %s

Answer the question with clear, step-by-step reasoning.
`

// Build renders the user prompt from ranked context chunks (nearest first)
// and the question. The chunks are joined in ranked order so the model sees
// the most relevant passage first.
func Build(contexts []string, question string) string {
	return fmt.Sprintf(userTemplate, strings.Join(contexts, "\n"), question)
}

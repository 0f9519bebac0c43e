// Package orchestrator runs a writing request end to end.
//
// A Pipeline moves through four fixed phases:
//   - Build: grow the writing tree from the request's root with a
//     decompose.Builder, then snapshot its leaves.
//   - Outline: ask the outline completer for a plan of every leaf.
//   - Text: ask the writing completer to turn each outline into prose.
//   - Concatenate: join the leaves' text in tree pre-order.
//
// A failing leaf is logged and skipped. The final text is whatever the
// successful leaves produced, possibly the empty string.
//
// Example usage:
//
//	p, err := orchestrator.New(orchestrator.Config{
//		Builder:  builder,
//		Outliner: client,
//		Writer:   client,
//		Prompts:  set,
//	})
//	result, err := p.Generate(ctx, orchestrator.Request{Task: "A story about the sea", WordCount: 8000})
package orchestrator

// Package tui defines the IO interface between the chat loop and the user
// interface layer, plus PlainIO (line terminal), TuiIO (bubbletea) and
// BufferIO (capture), and the preview/compare renderers used by rewrite.
package tui

// Status is the information shown in the status bar of interactive front ends.
type Status struct {
	Provider string
	Model    string
	Chat     string
}

// IO is the contract between the chat loop and the UI layer.
// Every method maps to a distinct visual event, so the chat loop never
// depends on a specific rendering implementation.
type IO interface {
	// ReadInput blocks until the user submits a line of input.
	// Returns ("", io.EOF) when the user quits.
	ReadInput() (string, error)

	// UserMessage displays the user's submitted message in the output area.
	UserMessage(text string)

	// ThinkingStart signals that a request is in flight and no text has
	// arrived yet.
	ThinkingStart()

	// TextUpdate carries the full reply received so far. Each call replaces
	// the previous snapshot; it is not a delta.
	TextUpdate(full string)

	// TextDone signals that the reply is complete. fullText is the final
	// reply, which interactive front ends render as Markdown.
	TextDone(fullText string)

	// SystemMessage displays a notice (command feedback, chat lists, help).
	SystemMessage(text string)

	// Error displays an error message with prominent styling.
	Error(msg string)

	// SetStatus updates the provider/model/chat indicator.
	SetStatus(s Status)
}

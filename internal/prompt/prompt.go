// Package prompt turns a piece of note text into the instruction sent to the
// model for the improve and enhance rewrite modes.
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"unicode/utf8"
)

//go:embed prompts/*.md
var promptFS embed.FS

// Mode selects what a rewrite does.
type Mode string

const (
	// ModeImprove fixes mistakes and restructures.
	ModeImprove Mode = "improve"
	// ModeEnhance also adds relevant thoughts.
	ModeEnhance Mode = "enhance"
)

// Preset is the writing style requested from the model.
type Preset string

const (
	PresetDefault   Preset = "default"
	PresetFormal    Preset = "formal"
	PresetInformal  Preset = "informal"
	PresetTechnical Preset = "technical"
)

// SpeedMode trades answer length and formatting detail for latency.
type SpeedMode string

const (
	SpeedQuality  SpeedMode = "quality"
	SpeedBalanced SpeedMode = "balanced"
	SpeedFast     SpeedMode = "fast"
)

// Placeholder is replaced with the note text in custom templates.
const Placeholder = "{text}"

// Options controls prompt construction. The zero value produces the default
// improve/enhance prompts in quality mode.
type Options struct {
	Preset    Preset
	Speed     SpeedMode
	MaxTokens int

	// Custom templates are used only when UseCustom is set and the template
	// for the requested mode is non-empty.
	UseCustom     bool
	CustomImprove string
	CustomEnhance string
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeImprove, ModeEnhance:
		return m, nil
	}
	return "", fmt.Errorf("unknown rewrite mode %q (want improve or enhance)", s)
}

func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PresetDefault, nil
	case PresetDefault, PresetFormal, PresetInformal, PresetTechnical:
		return p, nil
	}
	return "", fmt.Errorf("unknown preset %q (want default, formal, informal or technical)", s)
}

func ParseSpeedMode(s string) (SpeedMode, error) {
	switch m := SpeedMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SpeedBalanced, nil
	case SpeedQuality, SpeedBalanced, SpeedFast:
		return m, nil
	}
	return "", fmt.Errorf("unknown speed mode %q (want quality, balanced or fast)", s)
}

// Build returns the prompt for text in the given mode.
//
// A custom template has its first {text} replaced with the note. A template
// without the placeholder gets the note appended after a blank line.
func Build(text string, mode Mode, opts Options) string {
	if tmpl := opts.custom(mode); tmpl != "" {
		if strings.Contains(tmpl, Placeholder) {
			return strings.Replace(tmpl, Placeholder, text, 1)
		}
		return tmpl + "\n\n" + text
	}

	var b strings.Builder
	b.WriteString(presetStyle(opts.Preset))
	b.WriteString(instruction(mode))
	b.WriteString(formatting(opts.Speed))
	b.WriteString("\n\n")
	if mode == ModeEnhance {
		b.WriteString("Reply with the improved text only, without comments:")
	} else {
		b.WriteString("Reply with the corrected text only, without comments:")
	}
	b.WriteString("\n\n")
	b.WriteString(text)
	return b.String()
}

// MaxTokens sizes the completion budget for a prompt of promptLen characters.
// Fast and balanced modes cap the budget by prompt length; quality mode
// always uses the configured maximum.
func MaxTokens(promptLen int, opts Options) int {
	switch opts.Speed {
	case SpeedFast:
		return min(opts.MaxTokens, max(1000, promptLen*2))
	case SpeedBalanced:
		return min(opts.MaxTokens, max(1500, promptLen*3))
	default:
		return opts.MaxTokens
	}
}

// Len is the prompt length MaxTokens expects, counted in characters.
func Len(prompt string) int { return utf8.RuneCountInString(prompt) }

func (o Options) custom(mode Mode) string {
	if !o.UseCustom {
		return ""
	}
	switch mode {
	case ModeImprove:
		return strings.TrimSpace(o.CustomImprove)
	case ModeEnhance:
		return strings.TrimSpace(o.CustomEnhance)
	}
	return ""
}

func instruction(mode Mode) string {
	name := "prompts/improve.md"
	if mode == ModeEnhance {
		name = "prompts/enhance.md"
	}
	data, err := promptFS.ReadFile(name)
	if err != nil {
		// Embedded at build time; unreachable unless the binary is broken.
		panic(err)
	}
	return strings.TrimSpace(string(data))
}

func presetStyle(p Preset) string {
	switch p {
	case PresetFormal:
		return "Use a formal, official style. "
	case PresetInformal:
		return "Use an informal, friendly style. "
	case PresetTechnical:
		return "Use a technical, professional style with precise terminology. "
	default:
		return ""
	}
}

const baseFormat = "Format as Markdown: ### headings, #### subheadings, * lists, **bold**, *italics*, emoji where fitting."

func formatting(s SpeedMode) string {
	switch s {
	case SpeedFast:
		return "\n\n" + baseFormat
	case SpeedBalanced:
		return "\n\n" + baseFormat + " Structure it logically."
	default:
		return "\n\nIMPORTANT: " + baseFormat + " Structure it with headings and lists. Keep the logical structure and hierarchy."
	}
}

package chat

// QuickPrompt is a suggestion card shown on an empty page.
type QuickPrompt struct {
	Text string `json:"text" yaml:"text"`
	Icon string `json:"icon" yaml:"icon"`
}

var quickPrompts = []QuickPrompt{
	{Text: "Suggest beautiful places to see on an upcoming road trip", Icon: "compass"},
	{Text: "Briefly summarize this concept: urban planning", Icon: "bulb"},
	{Text: "Brainstorm team bonding activities for our work retreat", Icon: "message"},
	{Text: "Improve the readability of the following code", Icon: "code"},
}

// QuickPrompts returns the fixed suggestion prompts.
func QuickPrompts() []QuickPrompt {
	out := make([]QuickPrompt, len(quickPrompts))
	copy(out, quickPrompts)
	return out
}

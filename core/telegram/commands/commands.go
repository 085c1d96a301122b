package commands

// Command describes a slash command shown in the Telegram command menu.
// Commands carry no handler; the dialog dispatcher decides what they do.
type Command struct {
	Description string
	Hidden      bool
	Aliases     []string
}

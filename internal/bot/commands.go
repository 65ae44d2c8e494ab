package bot

// Command constants for Telegram bot commands.
const (
	CommandStart    = "/start"
	CommandDonate   = "/donate"
	CommandCancel   = "/cancel"
	CommandProfile  = "/profile"
	CommandHistory  = "/history"
	CommandSupport  = "/support"
	CommandLanguage = "/language"
	CommandAdmin    = "/admin"
	CommandStats    = "/stats"
	CommandSetCard  = "/setcard"
)

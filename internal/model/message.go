package model

// Role identifies who authored a transcript entry
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
)

// WelcomeText seeds every new transcript
const WelcomeText = "Welcome to ForgePilot. Describe the project you want to scaffold."

// BackendErrorText is the single agent reply shown for any failed dispatch
const BackendErrorText = "Error contacting backend."

// Message is one transcript entry. Entries are never mutated after append.
type Message struct {
	Role Role
	Text string
}

// Welcome returns the system message a fresh session starts with
func Welcome() Message {
	return Message{Role: RoleSystem, Text: WelcomeText}
}

package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandIdentify binds an identity to the connection.
	CommandIdentify CommandKind = iota
	// CommandJoinChannel subscribes the client to a channel.
	CommandJoinChannel
	// CommandLeaveChannel unsubscribes the client from a channel.
	CommandLeaveChannel
	// CommandSendMessage posts a message to a channel.
	CommandSendMessage
	// CommandCreateChannel registers a new public channel.
	CommandCreateChannel
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Channel  string
	Identity string
	Text     string
}

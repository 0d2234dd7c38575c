package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventChannelList delivers the known public channels to a new connection.
	EventChannelList EventKind = iota
	// EventOnlineUsers broadcasts the online identities on every presence change.
	EventOnlineUsers
	// EventMessage notifies channel members about a committed message.
	EventMessage
	// EventChannelCreated broadcasts a newly created channel.
	EventChannelCreated
	// EventHistory delivers the channel log tail to a client upon joining.
	EventHistory
	// EventError tells the initiating client why its command was rejected.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Channel  string
	Channels []string  // EventChannelList
	Users    []string  // EventOnlineUsers
	Message  Message   // EventMessage
	Messages []Message // EventHistory
	Error    *CoreError
}

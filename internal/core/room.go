package core

// broadcast hands ev to every client without blocking and returns how many
// accepted it. Slow or closed consumers miss the event; nothing is retried.
func broadcast(clients []*Client, ev *Event) int {
	delivered := 0
	for _, client := range clients {
		if client.deliver(ev) {
			delivered++
		}
	}
	return delivered
}

package conversation

// Window keeps the leading system messages plus roughly limit of the most
// recent messages. A cut that lands inside a tool exchange is widened back to
// the assistant request, and the latest user message is always kept, so the
// window may exceed limit. limit <= 0 returns msgs unchanged.
func Window(msgs []Message, limit int) []Message {
	if limit <= 0 {
		return msgs
	}

	head := 0
	for head < len(msgs) && msgs[head].Role == RoleSystem {
		head++
	}
	body := msgs[head:]
	if len(body) <= limit {
		return msgs
	}

	start := len(body) - limit
	for start > 0 && body[start].Role == RoleTool {
		start--
	}
	for i := len(body) - 1; i >= 0; i-- {
		if body[i].Role == RoleUser {
			start = min(start, i)
			break
		}
	}

	out := make([]Message, 0, head+len(body)-start)
	out = append(out, msgs[:head]...)
	out = append(out, body[start:]...)
	return out
}

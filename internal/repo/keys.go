package repo

import "fmt"

// Key construction. Suffixes are kept compatible with existing
// deployments, so an upgraded bot keeps seeing its old state.

func bannedKey(prefix string) string { return prefix + "-banned" }

func originChatKey(prefix string, relayedMsgID int) string {
	return fmt.Sprintf("%s-origin-chat-for-%d", prefix, relayedMsgID)
}

// relatedKey holds every admin-chat message tied to a user (relays and
// tickets); these are the messages deleted when the user is banned.
// The suffix is a legacy name.
func relatedKey(prefix string, chatID int64) string {
	return fmt.Sprintf("%s-forwarded-from-%d", prefix, chatID)
}

func messageLogKey(prefix string, chatID int64) string {
	return fmt.Sprintf("%s-log_with-%d", prefix, chatID)
}

func messageCounterKey(prefix string, userID int64) string {
	return fmt.Sprintf("%s-counter-for-user-%d", prefix, userID)
}

func violationsKey(prefix string, userID int64) string {
	return fmt.Sprintf("%s-rate-limit-violations-%d", prefix, userID)
}

func ticketForRelayKey(prefix string, relayedMsgID int) string {
	return fmt.Sprintf("%s-hashtag-msg-for-fwd-%d", prefix, relayedMsgID)
}

func recentTicketKey(prefix string, userID int64) string {
	return fmt.Sprintf("%s-recent-hashtag-for-%d", prefix, userID)
}

func categoryKey(prefix string, userID int64) string {
	return fmt.Sprintf("%s-category-of-%d", prefix, userID)
}

func languageKey(prefix string, userID int64) string {
	return fmt.Sprintf("%s-user-lang-%d", prefix, userID)
}

package relay

import (
	"strconv"

	"aeolus/service/token"
)

// Authorized decides whether the identity may join the requested channel.
// The token encodes the channel id as an integer while the wire carries a
// string; both sides are normalized to canonical string form here, and only
// here, so no other comparison site can reintroduce the type-mismatch bug.
func Authorized(c token.Claims, channelID string) bool {
	return strconv.Itoa(c.ChannelID) == channelID
}

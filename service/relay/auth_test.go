package relay

import (
	"testing"

	"aeolus/service/token"

	"github.com/stretchr/testify/assert"
)

func TestAuthorized(t *testing.T) {
	tests := []struct {
		name      string
		claims    token.Claims
		channelID string
		want      bool
	}{
		{"exact match", token.Claims{ChannelID: 100}, "100", true},
		{"different channel", token.Claims{ChannelID: 100}, "200", false},
		{"leading zero is a different string", token.Claims{ChannelID: 100}, "0100", false},
		{"empty request", token.Claims{ChannelID: 100}, "", false},
		{"non-numeric request", token.Claims{ChannelID: 100}, "abc", false},
		{"zero channel", token.Claims{ChannelID: 0}, "0", true},
		{"negative channel", token.Claims{ChannelID: -1}, "-1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorized(tt.claims, tt.channelID))
		})
	}
}

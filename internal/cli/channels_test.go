package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hostloop/internal/events"
)

func TestChannelsText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewChannelsCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, len(events.Catalog))
	assert.Contains(t, lines, string(events.GameLaunched))
	assert.IsNonDecreasing(t, lines)
}

func TestChannelsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewChannelsCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string               `json:"status"`
		Data   []events.ChannelInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data, len(events.Catalog))
	for _, info := range resp.Data {
		assert.Zero(t, info.Subscribers, info.Name)
	}
}

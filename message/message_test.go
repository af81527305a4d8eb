package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/tessera/message"
)

func TestDecode(t *testing.T) {
	msgs, err := message.Decode([]byte(`{"address": "/synth/freq", "args": [440, "sine", true, null, {"a": 1}]}`))
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	m := msgs[0]
	assert.Equal(t, "/synth/freq", m.Address)
	assert.Equal(t, 5, m.Len())
	f, ok := m.Float(0)
	assert.True(t, ok)
	assert.Equal(t, 440.0, f)
	i, ok := m.Int(0)
	assert.True(t, ok)
	assert.Equal(t, 440, i)
	s, ok := m.String(1)
	assert.True(t, ok)
	assert.Equal(t, "sine", s)
	b, ok := m.Bool(2)
	assert.True(t, ok)
	assert.True(t, b)
	assert.Nil(t, m.Args[3])
	assert.Equal(t, `{"a": 1}`, m.Args[4])

	_, ok = m.Float(1)
	assert.False(t, ok)
	_, ok = m.String(9)
	assert.False(t, ok)
}

func TestDecodeShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		args []any
	}{
		{"no args", `{"address": "/quit"}`, nil},
		{"scalar arg", `{"address": "/gain", "args": 0.5}`, []any{0.5}},
		{"empty args", `{"address": "/x", "args": []}`, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			msgs, err := message.Decode([]byte(c.in))
			require.NoError(t, err)
			require.Len(t, msgs, 1)
			assert.Equal(t, c.args, msgs[0].Args)
		})
	}
}

func TestDecodeBundle(t *testing.T) {
	msgs, err := message.Decode([]byte(`[{"address": "/a", "args": [1]}, {"address": "/b"}]`))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "/a", msgs[0].Address)
	assert.Equal(t, "/b", msgs[1].Address)

	_, err = message.Decode([]byte(`[{"address": "/a"}, 3]`))
	assert.ErrorIs(t, err, message.ErrMalformed)
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]error{
		`not json`:                  message.ErrMalformed,
		`{"args": [1]}`:             message.ErrMalformed,
		`{"address": 4}`:            message.ErrMalformed,
		`"just a string"`:           message.ErrMalformed,
		`{"address": "no/slash"}`:   message.ErrAddress,
		`{"address": "", "args":1}`: message.ErrAddress,
	}
	for in, want := range cases {
		_, err := message.Decode([]byte(in))
		assert.ErrorIs(t, err, want, in)
	}
}

func TestMatches(t *testing.T) {
	m := message.Message{Address: "/synth/freq"}
	assert.True(t, m.Matches("/synth"))
	assert.True(t, m.Matches("/synth/"))
	assert.True(t, m.Matches("/synth/freq"))
	assert.False(t, m.Matches("/syn"))
	assert.False(t, m.Matches("/synth/freq/x"))
}

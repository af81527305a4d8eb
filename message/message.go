// Package message receives control messages over the network and hands them
// to the application from a pump goroutine.
package message

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// package errors
var (
	ErrMalformed = errors.New("message: malformed")
	ErrAddress   = errors.New("message: address must start with /")
)

// Message is an address, such as /synth/freq, and its arguments. Arguments
// are float64, string, bool or nil.
type Message struct {
	Address string
	Args    []any
}

// Len returns the number of arguments.
func (m Message) Len() int { return len(m.Args) }

// Float returns argument i as a number.
func (m Message) Float(i int) (float64, bool) {
	if i < 0 || i >= len(m.Args) {
		return 0, false
	}
	f, ok := m.Args[i].(float64)
	return f, ok
}

// Int returns argument i truncated to an integer.
func (m Message) Int(i int) (int, bool) {
	f, ok := m.Float(i)
	return int(f), ok
}

// String returns argument i as a string.
func (m Message) String(i int) (string, bool) {
	if i < 0 || i >= len(m.Args) {
		return "", false
	}
	s, ok := m.Args[i].(string)
	return s, ok
}

// Bool returns argument i as a bool.
func (m Message) Bool(i int) (bool, bool) {
	if i < 0 || i >= len(m.Args) {
		return false, false
	}
	b, ok := m.Args[i].(bool)
	return b, ok
}

// Matches reports whether the address is prefix or lies below it.
func (m Message) Matches(prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	return m.Address == prefix || strings.HasPrefix(m.Address, prefix+"/")
}

// Decode parses a JSON message of the form
//
//	{"address": "/x", "args": [1, "two", true]}
//
// or an array of them, sent as one bundle.
func Decode(data []byte) ([]Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %w", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		m, err := decodeOne(root)
		if err != nil {
			return nil, err
		}
		return []Message{m}, nil
	}

	var msgs []Message
	for i, r := range root.Array() {
		m, err := decodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("bundle element %d: %w", i, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func decodeOne(r gjson.Result) (Message, error) {
	if !r.IsObject() {
		return Message{}, fmt.Errorf("expected an object: %w", ErrMalformed)
	}
	addr := r.Get("address")
	if addr.Type != gjson.String {
		return Message{}, fmt.Errorf("address missing: %w", ErrMalformed)
	}
	if !strings.HasPrefix(addr.Str, "/") {
		return Message{}, fmt.Errorf("%q: %w", addr.Str, ErrAddress)
	}

	m := Message{Address: addr.Str}
	args := r.Get("args")
	switch {
	case !args.Exists():
	case args.IsArray():
		for _, a := range args.Array() {
			m.Args = append(m.Args, argument(a))
		}
	default:
		m.Args = []any{argument(args)}
	}
	return m, nil
}

// argument converts a JSON value; objects and nested arrays are kept as
// their raw text.
func argument(a gjson.Result) any {
	switch a.Type {
	case gjson.Number:
		return a.Num
	case gjson.String:
		return a.Str
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Null:
		return nil
	default:
		return a.Raw
	}
}

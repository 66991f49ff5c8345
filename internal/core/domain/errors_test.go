package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid input", InvalidInputf("bad %s", "value"), KindInvalidInput},
		{"invalid params", InvalidParamsf("nope"), KindInvalidParams},
		{"authentication", Authenticationf("expired"), KindAuthentication},
		{"resource not found", ErrResourceNotFound, KindResourceNotFound},
		{"tool not found", ErrToolNotFound, KindToolNotFound},
		{"method not found", ErrMethodNotFound, KindMethodNotFound},
		{"http", HTTPRequestErr(errors.New("conn refused")), KindHTTPRequest},
		{"parse", ParseErrorf("bad json"), KindParseError},
		{"io", IOErr(errors.New("disk full")), KindIO},
		{"serialization", SerializationErr(errors.New("cycle")), KindSerialization},
		{"other", Otherf("boom"), KindOther},
		{"plain error", errors.New("plain"), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Authenticationf("inner"))
	assert.Equal(t, KindAuthentication, KindOf(wrapped))
}

func TestSentinelMatching(t *testing.T) {
	// Any ResourceNotFound-kind error matches the sentinel, regardless of
	// message.
	err := &Error{Kind: KindResourceNotFound, Message: "no such file"}
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.NotErrorIs(t, err, ErrToolNotFound)

	wrapped := fmt.Errorf("reading: %w", err)
	assert.ErrorIs(t, wrapped, ErrResourceNotFound)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "bad value", InvalidInputf("bad %s", "value").Error())

	cause := errors.New("tcp timeout")
	httpErr := HTTPRequestErr(cause)
	assert.Contains(t, httpErr.Error(), "tcp timeout")
	assert.ErrorIs(t, httpErr, cause)
}

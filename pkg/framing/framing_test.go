package framing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func frame(payload string) []byte {
	var buf []byte
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(payload)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, payload...)
	return buf
}

func decodeAsString(payload []byte) (string, error) {
	return string(payload), nil
}

func TestSource_DecodesFramesInOrderThenSignalsFinished(t *testing.T) {
	var data []byte
	data = append(data, frame("hello")...)
	data = append(data, frame("world")...)

	src := NewSource[string](bytes.NewReader(data), SelfDescribing, decodeAsString)

	var decoded []string
	finished := false
	for i := 0; i < 50 && !finished; i++ {
		event, fin, err := src.Next()
		require.NoError(t, err)
		if fin {
			finished = true
			break
		}
		if event != "" {
			decoded = append(decoded, event)
		}
	}

	require.True(t, finished, "source must eventually signal finished after EOF")
	require.Equal(t, []string{"hello", "world"}, decoded)
}

func TestSource_DecodeErrorIsFatalAndWrapped(t *testing.T) {
	data := frame("bad")
	failDecode := func(payload []byte) (string, error) {
		return "", errors.New("boom")
	}
	src := NewSource[string](bytes.NewReader(data), SelfDescribing, failDecode)

	var lastErr error
	for i := 0; i < 50; i++ {
		_, fin, err := src.Next()
		if err != nil {
			lastErr = err
			break
		}
		if fin {
			break
		}
	}

	require.Error(t, lastErr)
	require.ErrorIs(t, lastErr, ErrDecode)
}

func TestSource_EmptyStreamFinishesWithoutEvents(t *testing.T) {
	src := NewSource[string](bytes.NewReader(nil), SelfDescribing, decodeAsString)

	finished := false
	for i := 0; i < 50 && !finished; i++ {
		_, fin, err := src.Next()
		require.NoError(t, err)
		finished = fin
	}
	require.True(t, finished)
}

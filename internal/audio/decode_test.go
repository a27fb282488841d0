package audio

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePlainBase64(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello audio"))

	data, err := Decode(payload)

	require.NoError(t, err)
	assert.Equal(t, []byte("hello audio"), data)
}

func TestDecodeStripsDataURLPrefix(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0x52, 0x49, 0x46, 0x46})

	data, err := Decode("data:audio/wav;base64," + payload)

	require.NoError(t, err)
	assert.Equal(t, []byte{0x52, 0x49, 0x46, 0x46}, data)
}

func TestDecodeOnlyStripsUpToFirstMarker(t *testing.T) {
	// The payload portion is everything after the first "base64," marker.
	data, err := Decode("data:audio/webm;base64,AAAA")

	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0}, data)
}

func TestDecodeMalformedPayload(t *testing.T) {
	data, err := Decode("not-valid-base64!!!")

	require.Error(t, err)
	assert.Nil(t, data)

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestDecodeMalformedPayloadWithPrefix(t *testing.T) {
	data, err := Decode("data:audio/wav;base64,????")

	require.Error(t, err)
	assert.Nil(t, data)
}

func TestDecodeEmptyPayload(t *testing.T) {
	data, err := Decode("")

	require.NoError(t, err)
	assert.Empty(t, data)
}

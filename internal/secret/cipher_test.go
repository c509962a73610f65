package secret

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

type payload struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
	BaseURL  string `json:"baseUrl"`
}

func TestNewCipher_KeyLength(t *testing.T) {
	_, err := NewCipher("short")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewCipher(testKey + "x")
	assert.ErrorIs(t, err, ErrInvalidKey)

	c, err := NewCipher(testKey)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCipher_EncryptDecrypt(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	in := payload{UserName: "agent", Password: "s3cret", BaseURL: "https://help.example.com"}
	data, iv, err := c.Encrypt(in)
	require.NoError(t, err)

	assert.Len(t, iv, IVLength)
	_, err = hex.DecodeString(data)
	require.NoError(t, err, "data must be hex")
	assert.NotContains(t, data, "s3cret")

	var out payload
	require.NoError(t, c.Decrypt(data, iv, &out))
	assert.Equal(t, in, out)
}

func TestCipher_EncryptUsesFreshIV(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	_, iv1, err := c.Encrypt(payload{UserName: "a"})
	require.NoError(t, err)
	_, iv2, err := c.Encrypt(payload{UserName: "a"})
	require.NoError(t, err)
	assert.NotEqual(t, iv1, iv2)
}

func TestCipher_DataEndsWithTag(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	data, _, err := c.Encrypt(map[string]string{"k": "v"})
	require.NoError(t, err)

	// JSON `{"k":"v"}` is 9 bytes; GCM keeps the length and appends the tag.
	assert.Len(t, data, (9+tagSize)*2)
}

func TestCipher_DecryptFailures(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)
	data, iv, err := c.Encrypt(payload{UserName: "agent"})
	require.NoError(t, err)

	other, err := NewCipher(strings.Repeat("z", KeySize))
	require.NoError(t, err)

	var out payload
	assert.ErrorIs(t, other.Decrypt(data, iv, &out), ErrDecrypt, "wrong key")
	assert.ErrorIs(t, c.Decrypt(data, "0000000000000000", &out), ErrDecrypt, "wrong iv")
	assert.ErrorIs(t, c.Decrypt(data, "short", &out), ErrMalformed, "short iv")
	assert.ErrorIs(t, c.Decrypt("zz"+data[2:], iv, &out), ErrMalformed, "bad hex")
	assert.ErrorIs(t, c.Decrypt("abcd", iv, &out), ErrMalformed, "too short")

	tampered := []byte(data)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}
	assert.ErrorIs(t, c.Decrypt(string(tampered), iv, &out), ErrDecrypt, "tampered")
}

func TestCipher_DecryptInvalidJSON(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	// Seal a non-JSON payload by hand.
	aead, err := c.aead()
	require.NoError(t, err)
	iv := "abcdefabcdefabcd"
	sealed := aead.Seal(nil, []byte(iv), []byte("not json"), nil)

	var out payload
	err = c.Decrypt(hex.EncodeToString(sealed), iv, &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDecrypt))
}

func TestNewIV_RandFailure(t *testing.T) {
	orig := randRead
	t.Cleanup(func() { randRead = orig })
	randRead = func([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

	c, err := NewCipher(testKey)
	require.NoError(t, err)
	_, _, err = c.Encrypt(payload{})
	assert.ErrorContains(t, err, "generate iv")
}

package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	// iterações baixas só pra velocidade do teste; o formato é o mesmo
	token, err := hashWithIterations("segreto", 1000)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, "pbkdf2$1000$"))
	assert.Len(t, strings.Split(token, "$"), 4)

	assert.True(t, Verify("segreto", token))
	assert.False(t, Verify("sbagliato", token))
	assert.False(t, Verify("", token))
}

func TestHashGeneratesFreshSalt(t *testing.T) {
	a, err := hashWithIterations("same", 1000)
	require.NoError(t, err)
	b, err := hashWithIterations("same", 1000)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, Verify("same", a))
	assert.True(t, Verify("same", b))
}

func TestLegacyPlaintextFallback(t *testing.T) {
	// linha legada gravada sem hash compara byte a byte
	assert.True(t, Verify("demo", "demo"))
	assert.False(t, Verify("Demo", "demo"))
	assert.False(t, Verify("demo2", "demo"))
}

func TestMalformedTokensFailClosed(t *testing.T) {
	cases := []string{
		"",
		"pbkdf2$",
		"pbkdf2$$$",
		"pbkdf2$abc$salt$00",
		"pbkdf2$0$salt$00",
		"pbkdf2$-5$salt$00",
		"pbkdf2$1000$salt",
		"pbkdf2$1000$salt$zz",          // hex inválido
		"pbkdf2$1000$$deadbeef",        // salt vazio
		"pbkdf2$1000$salt$",            // chave vazia
		"pbkdf2$1000$salt$00$restante", // partes demais
	}
	for _, stored := range cases {
		assert.Falsef(t, Verify("whatever", stored), "stored=%q", stored)
	}
}

func TestDefaultIterations(t *testing.T) {
	token, err := Hash("p")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "pbkdf2$310000$"))
	assert.True(t, Verify("p", token))
}

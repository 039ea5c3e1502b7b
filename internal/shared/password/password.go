// Package password gera e verifica os tokens de credencial gravados na
// coluna password da tabela users.
//
// Formato do token: pbkdf2$<iterações>$<salt hex>$<chave hex>
//
// Valores gravados sem o prefixo pbkdf2$ são senhas legadas em claro e
// comparam byte a byte com o plaintext.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	prefix            = "pbkdf2"
	defaultIterations = 310000
	saltBytes         = 16
	keyBytes          = 32
)

// Hash deriva um token novo com salt aleatório.
func Hash(plain string) (string, error) {
	return hashWithIterations(plain, defaultIterations)
}

func hashWithIterations(plain string, iterations int) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)
	key := pbkdf2.Key([]byte(plain), []byte(saltHex), iterations, keyBytes, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", prefix, iterations, saltHex, hex.EncodeToString(key)), nil
}

// Verify compara plaintext com o valor gravado. Tokens malformados nunca
// propagam erro: a verificação falha fechada.
func Verify(plain, stored string) bool {
	if stored == "" {
		return false
	}
	if !strings.HasPrefix(stored, prefix+"$") {
		// linha legada sem hash
		return stored == plain
	}

	parts := strings.Split(stored, "$")
	if len(parts) != 4 {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	saltHex := parts[2]
	expected, err := hex.DecodeString(parts[3])
	if err != nil || saltHex == "" || len(expected) == 0 {
		return false
	}

	derived := pbkdf2.Key([]byte(plain), []byte(saltHex), iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(derived, expected) == 1
}

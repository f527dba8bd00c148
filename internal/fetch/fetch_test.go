package fetch

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	"github.com/local/pdf2md/internal/model"
)

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n%fake\n"), 0o644))
	return path
}

func TestIsRemote(t *testing.T) {
	require.True(t, IsRemote("http://example.com/doc.pdf"))
	require.True(t, IsRemote("https://example.com/doc.pdf"))
	require.True(t, IsRemote("s3://bucket/key.pdf"))
	require.False(t, IsRemote("/tmp/doc.pdf"))
	require.False(t, IsRemote("relative/doc.pdf"))
}

func TestResolveLocalReturnsPathUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, "doc.pdf")

	resolved, err := Resolve(context.Background(), path, nil, 30)
	require.NoError(t, err)
	require.Equal(t, path, resolved.Path)
	resolved.Cleanup()
}

func TestResolveLocalMissingFile(t *testing.T) {
	_, err := Resolve(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), nil, 30)
	require.Error(t, err)
	var notFound *model.FileNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestResolveLocalDirectoryIsInvalidInput(t *testing.T) {
	_, err := Resolve(context.Background(), t.TempDir(), nil, 30)
	require.Error(t, err)
	var invalid *model.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestResolveLocalRejectsNonPDFContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notapdf.txt")
	require.NoError(t, os.WriteFile(path, []byte("just some text"), 0o644))

	_, err := Resolve(context.Background(), path, nil, 30)
	require.Error(t, err)
	var notAPDF *model.NotAPdfError
	require.ErrorAs(t, err, &notAPDF)
}

func TestDecryptGCMRoundTrip(t *testing.T) {
	plaintext := []byte("%PDF-1.7\nencrypted body\n")
	password := "correct horse battery staple"

	salt := make([]byte, 16)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	key := pbkdf2.Key([]byte(password), salt, 100000, 32, sha256.New)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := make([]byte, 12)
	_, err = rand.Read(nonce)
	require.NoError(t, err)

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	packed := append(append(append([]byte{}, salt...), nonce...), ciphertext...)

	got, err := decryptGCM(packed, password)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestDecryptGCMFailsWithWrongPassword(t *testing.T) {
	plaintext := []byte("%PDF-1.7\nencrypted body\n")
	salt := make([]byte, 16)
	nonce := make([]byte, 12)

	key := pbkdf2.Key([]byte("right password"), salt, 100000, 32, sha256.New)
	block, _ := aes.NewCipher(key)
	gcm, _ := cipher.NewGCM(block)
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	packed := append(append(append([]byte{}, salt...), nonce...), ciphertext...)

	_, err := decryptGCM(packed, "wrong password")
	require.Error(t, err)
}

func TestDecryptGCMRejectsTooShortCiphertext(t *testing.T) {
	_, err := decryptGCM([]byte("too short"), "password")
	require.Error(t, err)
}

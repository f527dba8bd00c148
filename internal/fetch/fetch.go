// Package fetch resolves a user-supplied input string — a local path, an
// http(s):// URL, or an s3:// object — to a local file the rasterizer can
// open. A downloaded or fetched-and-decrypted input lands
// in a process temp directory that the caller must remove once conversion
// finishes; a local input is returned as-is, nothing to clean up.
package fetch

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/crypto/pbkdf2"

	"github.com/local/pdf2md/internal/model"
)

// Resolved is a local file ready to be opened by the rasterizer.
type Resolved struct {
	Path    string
	Cleanup func()
}

// IsRemote reports whether input names a remote resource (http(s):// or
// s3://) rather than a local filesystem path.
func IsRemote(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") || strings.HasPrefix(input, "s3://")
}

// Resolve dispatches on input's scheme: a local path is validated in place,
// an http(s) URL is downloaded, an s3:// object is fetched (and, if
// password is non-nil, decrypted) into a temp directory.
func Resolve(ctx context.Context, input string, password *string, downloadTimeoutSecs int) (Resolved, error) {
	switch {
	case strings.HasPrefix(input, "s3://"):
		return resolveS3(ctx, input, password)
	case strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://"):
		return resolveHTTP(ctx, input, downloadTimeoutSecs)
	default:
		return resolveLocal(input)
	}
}

func resolveLocal(path string) (Resolved, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return Resolved{}, &model.FileNotFoundError{Path: path}
	}
	if errors.Is(err, os.ErrPermission) {
		return Resolved{}, &model.PermissionDeniedError{Path: path}
	}
	if err != nil {
		return Resolved{}, &model.FileNotFoundError{Path: path}
	}
	if info.IsDir() {
		return Resolved{}, &model.InvalidInputError{Reason: fmt.Sprintf("%s is a directory", path)}
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return Resolved{}, &model.PermissionDeniedError{Path: path}
		}
		return Resolved{}, &model.FileNotFoundError{Path: path}
	}
	defer f.Close()

	if err := checkPDFMagic(f, path); err != nil {
		return Resolved{}, err
	}

	return Resolved{Path: path, Cleanup: func() {}}, nil
}

func resolveHTTP(ctx context.Context, rawURL string, timeoutSecs int) (Resolved, error) {
	if timeoutSecs <= 0 {
		timeoutSecs = 120
	}
	client := &http.Client{Timeout: time.Duration(timeoutSecs) * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Resolved{}, &model.DownloadFailedError{URL: rawURL, Reason: err.Error()}
	}

	resp, err := client.Do(req)
	if err != nil {
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			return Resolved{}, &model.DownloadTimeoutError{URL: rawURL, Secs: timeoutSecs}
		}
		return Resolved{}, &model.DownloadFailedError{URL: rawURL, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Resolved{}, &model.DownloadFailedError{URL: rawURL, Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	tmpDir, err := os.MkdirTemp("", "pdf2md-download-*")
	if err != nil {
		return Resolved{}, &model.InternalError{Detail: err.Error()}
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	filePath := filepath.Join(tmpDir, extractFilename(rawURL, resp))
	out, err := os.Create(filePath)
	if err != nil {
		cleanup()
		return Resolved{}, &model.InternalError{Detail: err.Error()}
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		cleanup()
		if errors.Is(err, context.DeadlineExceeded) {
			return Resolved{}, &model.DownloadTimeoutError{URL: rawURL, Secs: timeoutSecs}
		}
		return Resolved{}, &model.DownloadFailedError{URL: rawURL, Reason: err.Error()}
	}
	out.Close()

	f, err := os.Open(filePath)
	if err != nil {
		cleanup()
		return Resolved{}, &model.InternalError{Detail: err.Error()}
	}
	magicErr := checkPDFMagic(f, filePath)
	f.Close()
	if magicErr != nil {
		cleanup()
		return Resolved{}, magicErr
	}

	return Resolved{Path: filePath, Cleanup: cleanup}, nil
}

func extractFilename(rawURL string, resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := parseContentDisposition(cd); err == nil {
			if name, ok := params["filename"]; ok && name != "" {
				return filepath.Base(name)
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if base := filepath.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return "download.pdf"
}

func parseContentDisposition(v string) (string, map[string]string, error) {
	parts := strings.Split(v, ";")
	params := make(map[string]string)
	for _, p := range parts[1:] {
		kv := strings.SplitN(strings.TrimSpace(p), "=", 2)
		if len(kv) == 2 {
			params[strings.ToLower(kv[0])] = strings.Trim(kv[1], `"`)
		}
	}
	return strings.TrimSpace(parts[0]), params, nil
}

// resolveS3 fetches s3://bucket/key, optionally decrypting it with
// password. The at-rest format is a 16-byte salt, a 12-byte GCM nonce, then
// the ciphertext, with the key derived via PBKDF2-HMAC-SHA256.
func resolveS3(ctx context.Context, rawURL string, password *string) (Resolved, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Resolved{}, &model.InvalidInputError{Reason: fmt.Sprintf("malformed s3 URL: %s", rawURL)}
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return Resolved{}, &model.InvalidInputError{Reason: fmt.Sprintf("s3 URL must be s3://bucket/key, got %s", rawURL)}
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return Resolved{}, &model.DownloadFailedError{URL: rawURL, Reason: err.Error()}
	}
	client := s3.NewFromConfig(awsCfg)

	obj, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return Resolved{}, &model.DownloadFailedError{URL: rawURL, Reason: err.Error()}
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return Resolved{}, &model.DownloadFailedError{URL: rawURL, Reason: err.Error()}
	}

	if password != nil && *password != "" {
		data, err = decryptGCM(data, *password)
		if err != nil {
			return Resolved{}, &model.WrongPasswordError{Path: rawURL}
		}
	}

	tmpDir, err := os.MkdirTemp("", "pdf2md-s3-*")
	if err != nil {
		return Resolved{}, &model.InternalError{Detail: err.Error()}
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	filePath := filepath.Join(tmpDir, filepath.Base(key))
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		cleanup()
		return Resolved{}, &model.InternalError{Detail: err.Error()}
	}

	f, err := os.Open(filePath)
	if err != nil {
		cleanup()
		return Resolved{}, &model.InternalError{Detail: err.Error()}
	}
	magicErr := checkPDFMagic(f, filePath)
	f.Close()
	if magicErr != nil {
		cleanup()
		return Resolved{}, magicErr
	}

	return Resolved{Path: filePath, Cleanup: cleanup}, nil
}

func decryptGCM(data []byte, password string) ([]byte, error) {
	if len(data) < 16+12 {
		return nil, fmt.Errorf("ciphertext too short")
	}
	salt := data[:16]
	nonce := data[16:28]
	ciphertext := data[28:]

	key := pbkdf2.Key([]byte(password), salt, 100000, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// checkPDFMagic reads the first four bytes of f and requires them to be
// "%PDF"; it also runs mimetype detection so a non-PDF file with an
// accidental "%PDF"-prefixed payload still gets caught.
func checkPDFMagic(f *os.File, path string) error {
	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return &model.NotAPdfError{Path: path, Magic: magic}
	}
	if string(magic[:]) != "%PDF" {
		return &model.NotAPdfError{Path: path, Magic: magic}
	}

	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if mt, err := mimetype.DetectReader(f); err == nil && mt.String() != "application/pdf" && !mt.Is("application/pdf") {
			return &model.NotAPdfError{Path: path, Magic: magic}
		}
	}

	return nil
}

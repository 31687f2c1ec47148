package service

import (
	"crypto/rand"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"fileshare/server/fileman/domain"
)

const (
	tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	tokenLength   = 9
	thumbSuffix   = "_thumb.jpg"
)

// storagePath builds upload/<unix-ms>-<token>-<name>. The random token keeps
// paths unique across uploads in the same millisecond.
func storagePath(now time.Time, token, name string) string {
	return fmt.Sprintf("%s%d-%s-%s", domain.UploadPathPrefix, now.UnixMilli(), token, safeObjectName(name))
}

func randomToken() string {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	out := make([]byte, tokenLength)
	for i, b := range buf {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out)
}

func safeObjectName(name string) string {
	base := path.Base(filepath.ToSlash(strings.TrimSpace(name)))
	if base == "." || base == "/" || base == ".." {
		return "file"
	}
	return base
}

func thumbnailPath(objectPath string) string {
	ext := path.Ext(objectPath)
	return strings.TrimSuffix(objectPath, ext) + thumbSuffix
}

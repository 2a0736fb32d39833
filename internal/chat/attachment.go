package chat

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/thinkchat/internal/types"
)

// MaxImageBytes caps inline attachments at the remote's inline request limit.
const MaxImageBytes = 20 << 20

// LoadImage reads an image file as an inline attachment. Only image MIME
// types are accepted.
func LoadImage(path string) (*types.Attachment, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat attachment: %w", err)
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("attachment %s is a directory", path)
	}
	if info.Size() > MaxImageBytes {
		return nil, "", fmt.Errorf("attachment %s is %d bytes, limit is %d", path, info.Size(), MaxImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read attachment: %w", err)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		// Sniffing misses some formats (e.g. svg); trust the extension then.
		if byExt := mime.TypeByExtension(filepath.Ext(path)); strings.HasPrefix(byExt, "image/") {
			mimeType = byExt
		}
	}
	mimeType, _, _ = strings.Cut(mimeType, ";")
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("only image files are supported, %s is %s", filepath.Base(path), mimeType)
	}

	return &types.Attachment{
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}, filepath.Base(path), nil
}

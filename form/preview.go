package form

import (
	"mime"
	"os"
)

// Preview is the transient display handle paired 1:1 with an attachment.
// The file backing it lives only as long as the pairing does; Release
// must run when the attachment is removed or the form resets.
type Preview struct {
	URI  string
	path string
}

func newPreview(att Attachment) (Preview, error) {
	ext := ".img"
	if exts, err := mime.ExtensionsByType(att.MimeType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	file, err := os.CreateTemp("", "preview-*"+ext)
	if err != nil {
		return Preview{}, err
	}
	if _, err := file.Write(att.Bytes); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return Preview{}, err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return Preview{}, err
	}
	return Preview{URI: "file://" + file.Name(), path: file.Name()}, nil
}

// Release removes the backing file. Safe to call once per preview.
func (p Preview) Release() {
	if p.path != "" {
		_ = os.Remove(p.path)
	}
}

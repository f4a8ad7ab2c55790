package request

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestProcessAttachment(t *testing.T) {
	small := []byte("hello world")
	big := bytes.Repeat([]byte("x"), maxInlineAttachmentSize+1)

	t.Run("small file is inlined", func(t *testing.T) {
		att, err := ProcessAttachment("notes.txt", "text/plain", int64(len(small)), bytes.NewReader(small))
		if err != nil {
			t.Fatalf("ProcessAttachment() error = %v", err)
		}
		if att.Status != attachmentStatusProcessed {
			t.Errorf("status = %v, want %v", att.Status, attachmentStatusProcessed)
		}
		if !strings.HasPrefix(att.DataURL, "data:text/plain;base64,") {
			t.Errorf("dataUrl = %q, want a text/plain data URL", att.DataURL)
		}
		if att.Size != int64(len(small)) {
			t.Errorf("size = %d, want %d", att.Size, len(small))
		}
	})

	t.Run("large file keeps metadata only", func(t *testing.T) {
		att, err := ProcessAttachment("video.mp4", "video/mp4", int64(len(big)), bytes.NewReader(big))
		if err != nil {
			t.Fatalf("ProcessAttachment() error = %v", err)
		}
		if att.Status != attachmentStatusUploaded {
			t.Errorf("status = %v, want %v", att.Status, attachmentStatusUploaded)
		}
		if att.DataURL != "" {
			t.Error("dataUrl should be empty for large files")
		}
	})

	t.Run("understated size falls back to metadata", func(t *testing.T) {
		att, err := ProcessAttachment("video.mp4", "video/mp4", 10, bytes.NewReader(big))
		if err != nil {
			t.Fatalf("ProcessAttachment() error = %v", err)
		}
		if att.Status != attachmentStatusUploaded || att.DataURL != "" {
			t.Errorf("attachment = %+v, want metadata only", att)
		}
	})

	t.Run("read failure aborts", func(t *testing.T) {
		if _, err := ProcessAttachment("notes.txt", "text/plain", 10, failingReader{}); err == nil {
			t.Fatal("ProcessAttachment() error = nil, want error")
		}
	})
}

func TestProcessKardex(t *testing.T) {
	content := []byte("kardex pdf bytes")
	meta, err := ProcessKardex("kardex.pdf", int64(len(content)), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ProcessKardex() error = %v", err)
	}
	if meta.FileName != "kardex.pdf" || meta.Status != attachmentStatusProcessed {
		t.Errorf("ProcessKardex() = %+v", meta)
	}
	if meta.UploadedAt.IsZero() {
		t.Error("ProcessKardex() did not stamp UploadedAt")
	}
}

package request

import (
	"encoding/base64"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/peerhive/backend/core/user"
)

// Attachments up to this size are inlined in the document as a data URL.
const maxInlineAttachmentSize = 500_000

const (
	attachmentStatusProcessed = "processed"
	attachmentStatusUploaded  = "uploaded"
)

// ProcessAttachment reads an uploaded file and turns it into an Attachment.
// Small files are inlined as a base64 data URL; larger files keep metadata
// only. A read failure aborts the whole action: no partial attachment is
// ever returned.
func ProcessAttachment(fileName, mimeType string, size int64, r io.Reader) (*Attachment, error) {
	att := &Attachment{
		FileName: fileName,
		MimeType: mimeType,
		Size:     size,
	}

	if size > maxInlineAttachmentSize {
		att.Status = attachmentStatusUploaded
		return att, nil
	}

	content, err := io.ReadAll(io.LimitReader(r, maxInlineAttachmentSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading attachment %q", fileName)
	}
	if int64(len(content)) > maxInlineAttachmentSize {
		// declared size was wrong; fall back to metadata only
		att.Status = attachmentStatusUploaded
		return att, nil
	}

	att.Size = int64(len(content))
	att.DataURL = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
	att.Status = attachmentStatusProcessed
	return att, nil
}

// ProcessKardex reads an advisor's transcript evidence at signup, with the
// same inlining rule as chat attachments.
func ProcessKardex(fileName string, size int64, r io.Reader) (*user.KardexMeta, error) {
	att, err := ProcessAttachment(fileName, "application/octet-stream", size, r)
	if err != nil {
		return nil, err
	}
	return &user.KardexMeta{
		FileName:   att.FileName,
		UploadedAt: time.Now().UTC(),
		Size:       att.Size,
		DataURL:    att.DataURL,
		Status:     att.Status,
	}, nil
}

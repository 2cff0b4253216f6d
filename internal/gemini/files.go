package gemini

import (
	"bytes"
	"context"

	"github.com/m2tx/manualchat/internal/model"
	"google.golang.org/genai"
)

// Uploader implements contextcache.Uploader on the Gemini Files API.
type Uploader struct {
	files FileAPI
}

func NewUploader(files FileAPI) *Uploader {
	return &Uploader{files: files}
}

func (u *Uploader) Upload(ctx context.Context, name, mimeType string, data []byte) (model.RemoteFile, error) {
	f, err := u.files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: name,
	})
	if err != nil {
		return model.RemoteFile{}, classifyError(err)
	}
	return toRemoteFile(f), nil
}

func (u *Uploader) State(ctx context.Context, id string) (model.RemoteFile, error) {
	f, err := u.files.Get(ctx, id, nil)
	if err != nil {
		return model.RemoteFile{}, classifyError(err)
	}
	return toRemoteFile(f), nil
}

func toRemoteFile(f *genai.File) model.RemoteFile {
	if f == nil {
		return model.RemoteFile{State: model.FileStateFailed, Reason: "empty file response"}
	}
	rf := model.RemoteFile{
		ID:       f.Name,
		URI:      f.URI,
		MIMEType: f.MIMEType,
	}
	switch f.State {
	case genai.FileStateActive:
		rf.State = model.FileStateReady
	case genai.FileStateFailed:
		rf.State = model.FileStateFailed
		if f.Error != nil {
			rf.Reason = f.Error.Message
		}
	default:
		rf.State = model.FileStatePending
	}
	return rf
}

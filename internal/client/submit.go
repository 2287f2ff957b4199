package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/pkg/consensus"
)

// MaxCaptionLength is the longest caption the input accepts, in characters
const MaxCaptionLength = 100

// SubmittedMessage is shown after a successful upload.
// TODO: word this from the returned status once pending moderation is the server default.
const SubmittedMessage = "Your entry is under review. We'll approve it shortly."

var (
	ErrPermissionDenied = errors.New("permission needed: we need access to your photos")
	ErrNoPhoto          = errors.New("no photo: please select or take a photo first")
)

// PermissionFunc asks the platform for access to the photo source
type PermissionFunc func(ctx context.Context) (bool, error)

// Image is a picked photo
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SubmitFlow collects one photo and caption and uploads them
type SubmitFlow struct {
	client      consensus.Client
	categoryID  string
	permissions PermissionFunc

	image   *Image
	caption string
}

// NewSubmitFlow creates a flow for a category. A nil permissions func
// grants access.
func NewSubmitFlow(client consensus.Client, categoryID string, permissions PermissionFunc) *SubmitFlow {
	return &SubmitFlow{client: client, categoryID: categoryID, permissions: permissions}
}

// Pick selects the photo after checking permission. A denial aborts and
// keeps any previous photo.
func (f *SubmitFlow) Pick(ctx context.Context, img Image) error {
	if f.permissions != nil {
		granted, err := f.permissions(ctx)
		if err != nil {
			return err
		}
		if !granted {
			return ErrPermissionDenied
		}
	}
	f.image = &img
	return nil
}

// Image returns the picked photo, or nil
func (f *SubmitFlow) Image() *Image { return f.image }

// SetCaption sets the caption, cut to MaxCaptionLength characters
func (f *SubmitFlow) SetCaption(caption string) {
	if utf8.RuneCountInString(caption) > MaxCaptionLength {
		caption = string([]rune(caption)[:MaxCaptionLength])
	}
	f.caption = caption
}

// Caption returns the current caption
func (f *SubmitFlow) Caption() string { return f.caption }

// CaptionCounter renders the "n/100" counter
func (f *SubmitFlow) CaptionCounter() string {
	return fmt.Sprintf("%d/%d", utf8.RuneCountInString(f.caption), MaxCaptionLength)
}

// Submit uploads the photo. Failures leave the flow as it was so the
// user can retry.
func (f *SubmitFlow) Submit(ctx context.Context) (*models.Submission, error) {
	if f.image == nil {
		return nil, ErrNoPhoto
	}
	sub, err := f.client.UploadSubmission(ctx, f.categoryID, consensus.Upload{
		Filename:    f.image.Filename,
		ContentType: f.image.ContentType,
		Data:        bytes.NewReader(f.image.Data),
		Caption:     strings.TrimSpace(f.caption),
	})
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	return sub, nil
}

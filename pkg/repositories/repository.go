package repositories

import (
	"context"

	"github.com/cbodonnell/statexfer/pkg/repositories/models"
)

type Repository interface {
	Close(ctx context.Context) error
	// SaveCapture stores a capture, assigning a new ID when capture.ID is empty.
	SaveCapture(ctx context.Context, capture *models.Capture) error
	LoadCapture(ctx context.Context, id string) (*models.Capture, error)
	// ListCaptures returns the most recent captures first, without their data.
	ListCaptures(ctx context.Context, limit int) ([]*models.Capture, error)
	SaveCRCFrame(ctx context.Context, frame *models.CRCFrame) error
	// ListCRCFrames returns the frames of a session ordered by frame number.
	ListCRCFrames(ctx context.Context, session string) ([]*models.CRCFrame, error)
}

package submission

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/achados/internal/model"
)

// Gateway is the part of the backend a submission writes to.
type Gateway interface {
	UploadPhoto(ctx context.Context, r io.Reader, keyHint string) (string, error)
	CreateItem(ctx context.Context, n model.NewItem) (*model.Item, error)
	LinkPhoto(ctx context.Context, itemID, url string, position int) error
}

// Reloader refreshes the browse snapshot after a successful submit.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Workflow performs the side effects of leaving the Details step.
type Workflow struct {
	gw    Gateway
	store Reloader
	log   *slog.Logger
	now   func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewWorkflow creates a Workflow. store may be nil.
func NewWorkflow(gw Gateway, store Reloader, log *slog.Logger) *Workflow {
	return &Workflow{
		gw:       gw,
		store:    store,
		log:      log.With("service", "submission"),
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

func (w *Workflow) acquire(token string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inflight[token]; busy {
		return false
	}
	w.inflight[token] = struct{}{}
	return true
}

func (w *Workflow) release(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, token)
}

// Submit validates the draft, uploads the photo, creates the item, links the
// photo and reloads the snapshot, in that order.
//
// On validation errors nothing is called. A failed upload or create returns
// the state still on Details with the draft intact and Failure set; the error
// wraps model.ErrPhotoUploadFailed or model.ErrItemCreateFailed. A failed
// photo link or reload is only logged. On success the state moves to Results
// with the created item and an empty draft.
func (w *Workflow) Submit(ctx context.Context, s State) (State, error) {
	if s.Step != StepDetails {
		return s, invalid(s.Step, "submit")
	}
	if err := s.Draft.Contact.Validate(); err != nil {
		return s, err
	}
	if err := s.Draft.Details.Validate(); err != nil {
		return s, err
	}
	n := s.newItem()
	if err := n.Validate(); err != nil {
		return s, err
	}

	if !w.acquire(s.Token) {
		return s, model.ErrSubmitInProgress
	}
	defer w.release(s.Token)

	log := w.log.With("token", s.Token)

	var photoURL string
	if p := s.Draft.Photo; p != nil {
		url, err := w.gw.UploadPhoto(ctx, bytes.NewReader(p.Data), UploadKey(w.now(), p.Filename))
		if err != nil {
			log.Warn("photo upload failed", "error", err)
			s.Failure = FailurePhotoUpload
			return s, fmt.Errorf("%w: %w", model.ErrPhotoUploadFailed, err)
		}
		photoURL = url
	}

	item, err := w.gw.CreateItem(ctx, n)
	if err != nil {
		// An uploaded photo stays orphaned.
		log.Warn("item create failed", "error", err, "photo_url", photoURL)
		s.Failure = FailureItemCreate
		return s, fmt.Errorf("%w: %w", model.ErrItemCreateFailed, err)
	}

	if photoURL != "" && len(item.Photos) == 0 {
		if err := w.gw.LinkPhoto(ctx, item.ID, photoURL, 0); err != nil {
			log.Warn("photo link failed", "item_id", item.ID, "photo_url", photoURL,
				"error", fmt.Errorf("%w: %w", model.ErrPhotoLinkFailed, err))
		} else {
			item.Photos = append(item.Photos, model.Photo{URL: photoURL, Position: 0})
		}
	}

	if w.store != nil {
		if err := w.store.Reload(ctx); err != nil {
			log.Warn("reload after submit failed", "item_id", item.ID, "error", err)
		}
	}

	log.Info("submission completed", "item_id", item.ID, "type", item.Type)
	return State{
		Step:    StepResults,
		Token:   s.Token,
		OwnerID: s.OwnerID,
		Item:    item,
	}, nil
}

// UploadKey names an upload <unix-millis>-<uuid>.<ext>.
func UploadKey(now time.Time, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), ext)
}

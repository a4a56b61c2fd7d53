package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"homestock/internal/domain"
	"homestock/internal/storage"
)

// ErrExportDisabled is returned when no export storage is configured.
var ErrExportDisabled = errors.New("export storage not configured")

const maxParallelPlaces = 4

type ExportBackend interface {
	MyGroupID(ctx context.Context) (string, error)
	PlacesByGroup(ctx context.Context, groupID string) ([]domain.Place, error)
	PlaceProducts(ctx context.Context, placeID string) ([]domain.Product, error)
	ListsByGroup(ctx context.Context, groupID string) ([]domain.ShoppingList, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

// Snapshot is the exported inventory of one group.
type Snapshot struct {
	GroupID    string                `json:"groupId"`
	ExportedAt time.Time             `json:"exportedAt"`
	ExportedBy string                `json:"exportedBy,omitempty"`
	Places     []domain.Place        `json:"places"`
	Lists      []domain.ShoppingList `json:"lists"`
	Categories []domain.Category     `json:"categories"`
}

type ExportResult struct {
	Key      string    `json:"key"`
	Location string    `json:"location"`
	Size     int       `json:"size"`
	Places   int       `json:"places"`
	Products int       `json:"products"`
	At       time.Time `json:"exportedAt"`
}

type ExportConfig struct {
	Bucket    string
	KeyPrefix string
	Logger    *logrus.Logger
	Now       func() time.Time
}

// ExportService uploads inventory snapshots to object storage.
type ExportService struct {
	cfg     ExportConfig
	backend ExportBackend
	storage storage.Service
	users   CurrentUser
}

// NewExportService returns a service whose operations fail with ErrExportDisabled when store
// is nil.
func NewExportService(cfg ExportConfig, backend ExportBackend, store storage.Service, users CurrentUser) *ExportService {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &ExportService{cfg: cfg, backend: backend, storage: store, users: users}
}

func (s *ExportService) Enabled() bool {
	return s.storage != nil && s.cfg.Bucket != ""
}

// Snapshot gathers places with their products, lists and categories concurrently.
func (s *ExportService) Snapshot(ctx context.Context) (Snapshot, error) {
	groupID, err := s.backend.MyGroupID(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{GroupID: groupID, ExportedAt: s.cfg.Now().UTC()}
	if s.users != nil {
		snap.ExportedBy = s.users.User().Username
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		places, err := s.backend.PlacesByGroup(gctx, groupID)
		if err != nil {
			return fmt.Errorf("places: %w", err)
		}
		pg, pctx := errgroup.WithContext(gctx)
		pg.SetLimit(maxParallelPlaces)
		for i := range places {
			pg.Go(func() error {
				products, err := s.backend.PlaceProducts(pctx, places[i].ID)
				if err != nil {
					return fmt.Errorf("products of %s: %w", places[i].ID, err)
				}
				places[i].Products = products
				return nil
			})
		}
		if err := pg.Wait(); err != nil {
			return err
		}
		snap.Places = places
		return nil
	})
	g.Go(func() (err error) {
		snap.Lists, err = s.backend.ListsByGroup(gctx, groupID)
		return err
	})
	g.Go(func() (err error) {
		snap.Categories, err = s.backend.Categories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Export uploads a fresh snapshot under <prefix>/<group>/<timestamp>-<uuid>.json.
func (s *ExportService) Export(ctx context.Context) (ExportResult, error) {
	if !s.Enabled() {
		return ExportResult{}, ErrExportDisabled
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode snapshot: %w", err)
	}

	key := path.Join(s.groupPrefix(snap.GroupID), fmt.Sprintf("%s-%s.json", snap.ExportedAt.Format("20060102T150405Z"), uuid.NewString()))
	location, err := s.storage.PutObject(ctx, bytes.NewReader(body), storage.PutOptions{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		ContentType: "application/json",
		Metadata:    map[string]string{"group-id": snap.GroupID},
	})
	if err != nil {
		return ExportResult{}, err
	}

	products := 0
	for _, p := range snap.Places {
		products += len(p.Products)
	}
	s.cfg.Logger.WithField("group_id", snap.GroupID).Infof("inventory exported to %s", location)
	return ExportResult{
		Key:      key,
		Location: location,
		Size:     len(body),
		Places:   len(snap.Places),
		Products: products,
		At:       snap.ExportedAt,
	}, nil
}

// List returns the previous exports of the caller's group.
func (s *ExportService) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	if !s.Enabled() {
		return nil, ErrExportDisabled
	}
	groupID, err := s.backend.MyGroupID(ctx)
	if err != nil {
		return nil, err
	}
	return s.storage.ListObjects(ctx, s.cfg.Bucket, s.groupPrefix(groupID)+"/")
}

// URL presigns a download link for one export of the caller's group.
func (s *ExportService) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if !s.Enabled() {
		return "", ErrExportDisabled
	}
	groupID, err := s.backend.MyGroupID(ctx)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(key, s.groupPrefix(groupID)+"/") {
		return "", invalid("key", "does not belong to your group")
	}
	return s.storage.GetObjectURL(ctx, s.cfg.Bucket, key, expires)
}

// Purge deletes every export of the caller's group.
func (s *ExportService) Purge(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, ErrExportDisabled
	}
	groupID, err := s.backend.MyGroupID(ctx)
	if err != nil {
		return 0, err
	}
	return s.storage.DeletePrefix(ctx, s.cfg.Bucket, s.groupPrefix(groupID)+"/")
}

func (s *ExportService) groupPrefix(groupID string) string {
	if s.cfg.KeyPrefix == "" {
		return groupID
	}
	return s.cfg.KeyPrefix + "/" + groupID
}

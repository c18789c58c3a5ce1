// Package backup periodically snapshots the sqlite directory to object storage.
package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"petition/internal/storage"
)

const (
	filePrefix = "petition-"
	fileSuffix = ".db"
	stampFmt   = "20060102T150405Z"
)

// SnapshotFunc writes a consistent copy of the database to dest.
type SnapshotFunc func(ctx context.Context, dest string) error

// Scheduler takes a snapshot on start and then once per interval.
type Scheduler interface {
	Start(ctx context.Context) error
	Shutdown()
	RunOnce(ctx context.Context) (string, error)
}

type Config struct {
	Bucket    string
	KeyPrefix string
	Interval  time.Duration
	// Retain is how many snapshots to keep remotely. Zero keeps all.
	Retain  int
	WorkDir string
	Logger  *logrus.Logger
}

type scheduler struct {
	cfg      Config
	snapshot SnapshotFunc
	storage  storage.Service
	now      func() time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewScheduler(cfg Config, snapshot SnapshotFunc, store storage.Service) Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &scheduler{
		cfg:      cfg,
		snapshot: snapshot,
		storage:  store,
		now:      time.Now,
	}
}

func (s *scheduler) Start(ctx context.Context) error {
	if s.cfg.Bucket == "" {
		return fmt.Errorf("backup bucket is required")
	}
	if s.cfg.WorkDir != "" {
		if err := os.MkdirAll(s.cfg.WorkDir, 0o755); err != nil {
			return fmt.Errorf("create backup work dir: %w", err)
		}
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
	s.cfg.Logger.Infof("backup scheduler started, every %s to s3://%s/%s", s.cfg.Interval, s.cfg.Bucket, s.cfg.KeyPrefix)
	return nil
}

func (s *scheduler) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.cfg.Logger.Info("backup scheduler stopped")
}

func (s *scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.cfg.Logger.WithError(err).Error("snapshot backup failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce takes one snapshot, uploads it, and prunes old snapshots.
func (s *scheduler) RunOnce(ctx context.Context) (string, error) {
	tmp, err := os.MkdirTemp(s.cfg.WorkDir, "petition-backup-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	name := filePrefix + s.now().UTC().Format(stampFmt) + fileSuffix
	local := filepath.Join(tmp, name)
	if err := s.snapshot(ctx, local); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	dest, err := s.storage.UploadFile(ctx, local, storage.UploadOptions{
		Bucket:      s.cfg.Bucket,
		Key:         s.key(name),
		ContentType: "application/vnd.sqlite3",
	})
	if err != nil {
		return "", err
	}
	logger := s.cfg.Logger.WithField("dest", dest)
	logger.Info("snapshot uploaded")

	if err := s.prune(ctx); err != nil {
		logger.WithError(err).Warn("prune old snapshots")
	}
	return dest, nil
}

func (s *scheduler) key(name string) string {
	if s.cfg.KeyPrefix == "" {
		return name
	}
	return s.cfg.KeyPrefix + "/" + name
}

func (s *scheduler) prune(ctx context.Context) error {
	if s.cfg.Retain <= 0 {
		return nil
	}

	listPrefix := s.key(filePrefix)
	objects, err := s.storage.ListObjects(ctx, s.cfg.Bucket, listPrefix)
	if err != nil {
		return err
	}

	var keys []string
	for _, obj := range objects {
		base := path.Base(obj.Key)
		if path.Dir(obj.Key) == path.Dir(listPrefix) && strings.HasPrefix(base, filePrefix) && strings.HasSuffix(base, fileSuffix) {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) <= s.cfg.Retain {
		return nil
	}

	// timestamps sort lexically
	sort.Strings(keys)
	stale := keys[:len(keys)-s.cfg.Retain]
	if err := s.storage.DeleteObjects(ctx, s.cfg.Bucket, stale); err != nil {
		return err
	}
	s.cfg.Logger.WithField("count", len(stale)).Info("pruned old snapshots")
	return nil
}

package publish

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/theory-cloud/docsite"
	"github.com/theory-cloud/docsite/pkg/logger"
	"github.com/theory-cloud/docsite/pkg/observability"
)

const (
	DefaultConcurrency = 8

	fallbackContentType = "binary/octet-stream"
)

// Uploader is the subset of the S3 upload manager used by Syncer;
// manager.NewUploader satisfies it.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Syncer copies a generated site directory into the bucket, the way
// `aws s3 cp --acl public-read --recursive` does.
type Syncer struct {
	Uploader    Uploader
	Concurrency int
	// ACL defaults to public-read.
	ACL    s3types.ObjectCannedACL
	Prefix string
	// Logger defaults to the process logger from pkg/logger.
	Logger observability.StructuredLogger
	Clock  Clock
}

// Report summarizes one Sync call.
type Report struct {
	Bucket   string        `json:"bucket"`
	Keys     []string      `json:"keys"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

type localFile struct {
	path string
	key  string
	size int64
}

// Sync uploads every regular file under dir. The first failed upload cancels
// the rest and is returned as a docsite.publish_failed error.
func (s *Syncer) Sync(ctx context.Context, dir, bucket string) (Report, error) {
	if s == nil || s.Uploader == nil {
		return Report{}, errors.New("publish: uploader is nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return Report{}, docsite.NewError(docsite.ErrorCodeConfigInvalid, "bucket is required")
	}

	clock := s.Clock
	if clock == nil {
		clock = systemClock{}
	}
	log := s.Logger
	if log == nil {
		log = logger.For("publish.sync")
	}
	started := clock.Now()

	files, err := s.collect(dir)
	if err != nil {
		return Report{}, docsite.WrapError(docsite.ErrorCodePublishFailed, "scan "+dir, err)
	}

	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	acl := s.ACL
	if acl == "" {
		acl = s3types.ObjectCannedACLPublicRead
	}

	var (
		mu    sync.Mutex
		bytes int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, f := range files {
		g.Go(func() error {
			if err := s.upload(gctx, bucket, acl, f); err != nil {
				return docsite.WrapError(docsite.ErrorCodePublishFailed, "upload "+f.key, err)
			}
			mu.Lock()
			bytes += f.size
			mu.Unlock()
			log.Debug("uploaded object", map[string]any{"bucket": bucket, "key": f.key, "bytes": f.size})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("sync failed", map[string]any{"bucket": bucket, "error": err})
		return Report{}, err
	}

	report := Report{
		Bucket:   bucket,
		Keys:     make([]string, len(files)),
		Bytes:    bytes,
		Duration: clock.Now().Sub(started),
	}
	for i, f := range files {
		report.Keys[i] = f.key
	}
	log.Info("synced site content", map[string]any{
		"bucket":  bucket,
		"objects": len(report.Keys),
		"bytes":   report.Bytes,
	})
	return report, nil
}

func (s *Syncer) collect(dir string) ([]localFile, error) {
	var files []localFile
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, localFile{
			path: p,
			key:  ObjectKey(s.Prefix, rel),
			size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].key < files[j].key })
	return files, nil
}

func (s *Syncer) upload(ctx context.Context, bucket string, acl s3types.ObjectCannedACL, f localFile) error {
	//nolint:gosec // Paths come from walking the operator's content directory.
	body, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer body.Close()

	_, err = s.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(f.key),
		Body:        body,
		ACL:         acl,
		ContentType: aws.String(ContentType(f.key)),
	})
	return err
}

// ObjectKey joins prefix and a slash-separated form of rel.
func ObjectKey(prefix, rel string) string {
	key := filepath.ToSlash(rel)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// ContentType guesses the MIME type from the key's extension.
func ContentType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return fallbackContentType
}

package plot

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/trendteller/internal/utils"
)

// Sink stores a rendered image under name and returns its location.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// SinkConfig selects and configures a Sink.
type SinkConfig struct {
	Kind     string // dir, s3 or gcs
	Dir      string
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
	KeyID    string
	Secret   string
}

// DefaultDir is where the dir sink writes when no directory is configured.
const DefaultDir = "insight_plots"

// OpenSink builds the Sink described by cfg.
func OpenSink(ctx context.Context, cfg SinkConfig) (Sink, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "dir":
		return NewDirSink(cfg.Dir), nil
	case "s3":
		return NewS3Sink(cfg)
	case "gcs":
		return NewGCSSink(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown plots sink %q (use dir, s3 or gcs)", cfg.Kind)
	}
}

// DirSink writes images into a local directory.
type DirSink struct {
	Dir string
}

func NewDirSink(dir string) *DirSink {
	if dir == "" {
		dir = DefaultDir
	}
	return &DirSink{Dir: dir}
}

// Put writes the image atomically; an existing file of the same name is replaced.
func (s *DirSink) Put(_ context.Context, name string, data []byte) (string, error) {
	if err := utils.EnsureDir(s.Dir); err != nil {
		return "", fmt.Errorf("create plots dir: %w", err)
	}
	p := filepath.Join(s.Dir, name)
	if err := utils.SafeWriteFile(p, data); err != nil {
		return "", err
	}
	return p, nil
}

func objectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Package artifact stores rendered game logs and pages.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/gosimple/slug"
)

// ErrNotFound is returned by Get for an unknown location.
var ErrNotFound = errors.New("artifact not found")

// Store persists game artifacts and returns a location that Get understands.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Get(ctx context.Context, location string) ([]byte, error)
}

// GameKey builds the key of a game artifact from its tournament and matchup, e.g.
// "tournament-3-spring-open/1_vs_2-alpha-vs-beta.json". A replayed matchup
// overwrites its previous artifacts.
func GameKey(tournamentID int64, tournamentName, matchup, black, white, ext string) string {
	dir := fmt.Sprintf("tournament-%d", tournamentID)
	if s := slug.Make(tournamentName); s != "" {
		dir += "-" + s
	}
	file := matchup
	if s := slug.Make(black + " vs " + white); s != "" {
		file += "-" + s
	}
	return path.Join(dir, file+"."+ext)
}

// Open returns an S3 store when s3cfg names a bucket, otherwise a local store rooted at dir.
func Open(ctx context.Context, dir string, s3cfg S3Config) (Store, error) {
	if s3cfg.Bucket != "" {
		return NewS3Store(ctx, s3cfg)
	}
	if dir == "" {
		return nil, errors.New("artifact dir is required when no bucket is set")
	}
	return NewLocalStore(dir), nil
}

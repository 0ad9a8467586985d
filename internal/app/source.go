package app

import (
	"context"
	"os"
	"strings"

	"vin_appraisal/internal/session"

	"github.com/rs/zerolog/log"
)

// Source sends http(s) references to the remote source and everything else
// that names an existing file to the local one.
type Source struct {
	remote session.Source
	local  session.Source
}

func NewSource(remote, local session.Source) *Source {
	return &Source{remote: remote, local: local}
}

func (s *Source) Fetch(ctx context.Context, ref string) (string, error) {
	if IsLocalReference(ref) {
		log.Debug().Str("path", ref).Msg("Loading sheet from file")
		return s.local.Fetch(ctx, ref)
	}
	return s.remote.Fetch(ctx, ref)
}

// IsLocalReference reports whether ref names a file on disk rather than a URL.
func IsLocalReference(ref string) bool {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return false
	}
	info, err := os.Stat(ref)
	return err == nil && !info.IsDir()
}

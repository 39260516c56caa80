package web

import (
	"net/url"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// ResourceScheme is the URL scheme of resolved application resources
const ResourceScheme = "webapp"

// Resources resolves application-relative paths against a document base
type Resources struct {
	host string
	fs   afero.Fs
}

// NewResources serves resources of the application named host from fs.
// A nil fs is an empty document base.
func NewResources(host string, fs afero.Fs) *Resources {
	if fs == nil {
		fs = afero.NewMemMapFs()
	}
	return &Resources{host: host, fs: fs}
}

// Resource resolves p to a locator, or returns nil when nothing exists at p.
// Paths must be absolute within the document base.
func (r *Resources) Resource(p string) (*url.URL, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, MalformedPathError(p)
	}

	clean := path.Clean(p)
	exists, err := afero.Exists(r.fs, clean)
	if err != nil {
		return nil, ResourceError(p, err)
	}
	if !exists {
		return nil, nil
	}

	return &url.URL{Scheme: ResourceScheme, Host: r.host, Path: clean}, nil
}

// Fs returns the document base filesystem
func (r *Resources) Fs() afero.Fs {
	return r.fs
}

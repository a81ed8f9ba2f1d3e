package storage

import (
	"net/url"
	gopath "path"
	"path/filepath"
	"strings"
)

type URI url.URL

// ParseURI parses the path using url.Parse.  If the provided path does
// not carry a known scheme, it is treated as a file and resolved to an
// absolute path.  An empty path yields a pointer to a zero-valued URI.
func ParseURI(path string) (*URI, error) {
	if path == "" {
		return &URI{}, nil
	}
	u, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	if !knownScheme(Scheme(u.Scheme)) {
		// Either the scheme is empty, implying a file, or this is a
		// file path with a colon embedded, so parse it as a file
		// either way.
		return parseBarePath(path)
	}
	return (*URI)(u), nil
}

func parseBarePath(path string) (*URI, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &URI{
		Scheme: string(FileScheme),
		Path:   filepath.ToSlash(abs),
	}, nil
}

func MustParseURI(path string) *URI {
	u, err := ParseURI(path)
	if err != nil {
		panic(err)
	}
	return u
}

func (u URI) String() string {
	return (*url.URL)(&u).String()
}

func (u *URI) Filepath() string {
	return filepath.FromSlash(u.Path)
}

func (u *URI) HasScheme(s Scheme) bool {
	return Scheme(u.Scheme) == s
}

func (p *URI) AppendPath(elem ...string) *URI {
	u := *p
	for _, el := range elem {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + el
	}
	return &u
}

func (u *URI) Base() string {
	return gopath.Base(u.Path)
}

func (u *URI) IsZero() bool {
	return *u == URI{}
}

func (u *URI) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *URI) UnmarshalText(b []byte) error {
	uri, err := ParseURI(string(b))
	if err != nil {
		return err
	}
	*u = *uri
	return nil
}

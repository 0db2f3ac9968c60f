package gitsrc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hairyhenderson/go-git/v5"
	"github.com/hairyhenderson/go-git/v5/plumbing"
	"github.com/hairyhenderson/go-git/v5/plumbing/transport"
	"github.com/hairyhenderson/go-git/v5/plumbing/transport/client"
	"github.com/hairyhenderson/go-git/v5/storage/memory"
	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
)

type gitSource struct {
	base   *url.URL
	repo   *url.URL
	auth   Authenticator
	name   string
	format secretfs.Format
	dir    bool
}

// New returns a secret source for the file or directory named by u inside a
// git repository.
func New(u *url.URL) (secretfs.Source, error) {
	if u.Scheme != "git" && !strings.HasPrefix(u.Scheme, "git+") {
		return nil, fmt.Errorf("invalid URL scheme %q", u.Scheme)
	}

	repoPath, subpath := splitRepoPath(u.Path)
	if repoPath == "" {
		return nil, fmt.Errorf("invalid url %q: a repository path is required", u.Redacted())
	}

	repo := *u
	repo.Scheme = strings.TrimPrefix(u.Scheme, "git+")
	repo.Path = repoPath
	repo.RawPath = ""
	repo.RawQuery = ""

	format := secretfs.Format(u.Query().Get("format"))
	switch format {
	case "", secretfs.FormatJSON, secretfs.FormatYAML, secretfs.FormatDotenv:
	default:
		return nil, fmt.Errorf("invalid url %q: unsupported format %q", u.Redacted(), format)
	}

	s := &gitSource{
		base: u,
		repo: &repo,
		auth: AutoAuthenticator(),
		name: subpath,
		dir:  strings.HasSuffix(subpath, "/"),
	}

	if s.dir {
		if format != "" {
			return nil, fmt.Errorf("invalid url %q: format can't be given for a directory", u.Redacted())
		}

		return s, nil
	}

	s.format = format
	if s.format == "" {
		s.format = secretfs.FormatOf("", subpath)
	}

	return s, nil
}

// Source is used to register this source with a [secretfs.SourceMux]
//
//nolint:gochecknoglobals
var Source = secretfs.SourceProviderFunc(New, "git", "git+file", "git+http", "git+https", "git+ssh")

// splitRepoPath separates the repository's path from the path inside it,
// which follows a "//". A missing inner path means the repository's root.
func splitRepoPath(p string) (repo, subpath string) {
	repo, subpath, _ = strings.Cut(p, "//")

	return repo, "/" + subpath
}

// refFromURL returns the reference named by the URL fragment, if any
func refFromURL(u *url.URL) plumbing.ReferenceName {
	switch {
	case strings.HasPrefix(u.Fragment, "refs/"):
		return plumbing.ReferenceName(u.Fragment)
	case u.Fragment != "":
		return plumbing.NewBranchReferenceName(u.Fragment)
	default:
		return ""
	}
}

func (s *gitSource) URL() string {
	return s.base.Redacted()
}

func (s *gitSource) WithAuthenticator(auth Authenticator) secretfs.Source {
	if auth == nil {
		return s
	}

	src := *s
	src.auth = auth

	return &src
}

func (s *gitSource) Fetch(ctx context.Context) ([]secretfs.Secret, error) {
	bfs, err := s.clone(ctx, *s.repo)
	if err != nil {
		return nil, err
	}

	if s.dir {
		return s.readDir(ctx, bfs)
	}

	data, err := util.ReadFile(bfs, s.name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.name, err)
	}

	defer memlock.Wipe(data)

	secrets, err := secretfs.DecodeSecrets(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	for i := range secrets {
		secrets[i].Source = s.URL()
	}

	return secrets, nil
}

func (s *gitSource) readDir(ctx context.Context, bfs billy.Filesystem) ([]secretfs.Secret, error) {
	fis, err := bfs.ReadDir(s.name)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", s.name, err)
	}

	secrets := make([]secretfs.Secret, 0, len(fis))

	for _, fi := range fis {
		if strings.HasPrefix(fi.Name(), ".") || !fi.Mode().IsRegular() {
			continue
		}

		if err := ctx.Err(); err != nil {
			secretfs.WipeAll(secrets)

			return nil, err
		}

		value, err := util.ReadFile(bfs, path.Join(s.name, fi.Name()))
		if err != nil {
			secretfs.WipeAll(secrets)

			return nil, fmt.Errorf("read %s: %w", fi.Name(), err)
		}

		secrets = append(secrets, secretfs.Secret{Name: fi.Name(), Source: s.URL(), Value: value})
	}

	return secrets, nil
}

// clone makes an in-memory checkout of the repository at u, which must not
// carry the path inside the repository.
func (s *gitSource) clone(ctx context.Context, u url.URL) (billy.Filesystem, error) {
	if s.auth == nil {
		return nil, errors.New("clone: no authenticator")
	}

	auth, err := s.auth.Authenticate(&u)
	if err != nil {
		return nil, err
	}

	ref := refFromURL(&u)
	orig := u
	u.Fragment = ""

	// go-git assumes "master" when no reference is given
	if ref == "" {
		ref, _ = remoteHead(ctx, &u, auth)
	}

	// local repositories can't be cloned shallowly
	depth := 1
	if u.Scheme == "file" {
		depth = 0
	}

	bfs := memfs.New()

	_, err = git.CloneContext(ctx, memory.NewStorage(), bfs, &git.CloneOptions{
		URL:           u.String(),
		Auth:          auth,
		Depth:         depth,
		ReferenceName: ref,
		SingleBranch:  true,
		Tags:          git.NoTags,
	})

	// a non-bare local repository keeps its data in .git
	if u.Scheme == "file" && errors.Is(err, transport.ErrRepositoryNotFound) && !strings.HasSuffix(u.Path, ".git") {
		orig.Path = path.Join(orig.Path, ".git")

		return s.clone(ctx, orig)
	}

	if err != nil {
		return nil, fmt.Errorf("git clone %s: %w", orig.Redacted(), err)
	}

	return bfs, nil
}

// remoteHead asks the remote which branch its HEAD points to
func remoteHead(ctx context.Context, u *url.URL, auth transport.AuthMethod) (plumbing.ReferenceName, error) {
	ep, err := transport.NewEndpoint(u.String())
	if err != nil {
		return "", err
	}

	cli, err := client.NewClient(ep)
	if err != nil {
		return "", err
	}

	sess, err := cli.NewUploadPackSession(ep, auth)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	info, err := sess.AdvertisedReferencesContext(ctx)
	if err != nil {
		return "", err
	}

	refs, err := info.AllReferences()
	if err != nil {
		return "", err
	}

	head, ok := refs["HEAD"]
	if !ok {
		return "", errors.New("remote has no HEAD")
	}

	return head.Target(), nil
}

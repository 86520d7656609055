// Package github mirrors the record store into a file in a GitHub
// repository through the contents API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fwojciec/adharvest"
	"github.com/google/go-github/v66/github"
)

// Config locates the mirrored file.
type Config struct {
	Owner  string `mapstructure:"owner"`
	Repo   string `mapstructure:"repo"`
	Path   string `mapstructure:"path"`
	Branch string `mapstructure:"branch"`
	Token  string `mapstructure:"token"`
}

// Validate returns an error if the configuration cannot locate a file.
func (c Config) Validate() error {
	if c.Owner == "" || c.Repo == "" {
		return adharvest.Errorf(adharvest.EINVALID, "mirror owner and repo required")
	}
	if c.Path == "" {
		return adharvest.Errorf(adharvest.EINVALID, "mirror path required")
	}
	if c.Token == "" {
		return adharvest.Errorf(adharvest.EINVALID, "mirror token required")
	}
	return nil
}

// Ensure Mirror implements adharvest.Mirror at compile time.
var _ adharvest.Mirror = (*Mirror)(nil)

// Mirror reads and replaces one repository file. The blob SHA is the
// revision token, so GitHub rejects a replace based on a stale read.
type Mirror struct {
	client *github.Client
	cfg    Config
}

// NewMirror creates a Mirror authenticated with cfg.Token.
func NewMirror(cfg Config) (*Mirror, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewMirrorWithClient(github.NewClient(nil).WithAuthToken(cfg.Token), cfg), nil
}

// NewMirrorWithClient creates a Mirror using an existing client (primarily
// for testing).
func NewMirrorWithClient(client *github.Client, cfg Config) *Mirror {
	return &Mirror{client: client, cfg: cfg}
}

// Get returns the file content and its blob SHA.
// Returns ENOTFOUND if the file does not exist on the branch.
func (m *Mirror) Get(ctx context.Context) (*adharvest.MirrorState, error) {
	opts := &github.RepositoryContentGetOptions{Ref: m.cfg.Branch}
	file, _, _, err := m.client.Repositories.GetContents(ctx, m.cfg.Owner, m.cfg.Repo, m.cfg.Path, opts)
	if err != nil {
		return nil, m.translate("read", err)
	}
	if file == nil {
		return nil, adharvest.Errorf(adharvest.EINVALID, "mirror path %s is a directory", m.cfg.Path)
	}

	sha := file.GetSHA()
	var content []byte
	if file.GetEncoding() == "none" {
		// Files over the contents API size limit carry no inline content.
		content, _, err = m.client.Git.GetBlobRaw(ctx, m.cfg.Owner, m.cfg.Repo, sha)
		if err != nil {
			return nil, m.translate("read blob", err)
		}
	} else {
		s, err := file.GetContent()
		if err != nil {
			return nil, fmt.Errorf("decode mirror content: %w", err)
		}
		content = []byte(s)
	}
	return &adharvest.MirrorState{Content: content, Revision: sha}, nil
}

// Put replaces the file. An empty revision creates it.
// Returns ECONFLICT if revision no longer names the current blob.
func (m *Mirror) Put(ctx context.Context, content []byte, revision string, message string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
	}
	if m.cfg.Branch != "" {
		opts.Branch = github.String(m.cfg.Branch)
	}

	var err error
	if revision == "" {
		_, _, err = m.client.Repositories.CreateFile(ctx, m.cfg.Owner, m.cfg.Repo, m.cfg.Path, opts)
	} else {
		opts.SHA = github.String(revision)
		_, _, err = m.client.Repositories.UpdateFile(ctx, m.cfg.Owner, m.cfg.Repo, m.cfg.Path, opts)
	}
	if err != nil {
		return m.translate("write", err)
	}
	return nil
}

// translate maps API status codes onto application error codes.
func (m *Mirror) translate(op string, err error) error {
	var resp *github.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		switch resp.Response.StatusCode {
		case http.StatusNotFound:
			return adharvest.Errorf(adharvest.ENOTFOUND, "mirror %s/%s:%s not found", m.cfg.Owner, m.cfg.Repo, m.cfg.Path)
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return adharvest.Errorf(adharvest.ECONFLICT, "mirror %s rejected: %s", op, resp.Message)
		}
	}
	return fmt.Errorf("mirror %s: %w", op, err)
}

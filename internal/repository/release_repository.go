package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

var ErrReleaseNotifierDisabled = errors.New("github releases are disabled")

// ReleaseRepository announces a published tag on the hosting service.
type ReleaseRepository interface {
	CreateRelease(ctx context.Context, release domain.Release) (string, error)
}

// githubRepository is the go-github implementation of ReleaseRepository.
type githubRepository struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGithubRepository creates a ReleaseRepository for owner/repo.
func NewGithubRepository(token, owner, repo string) (ReleaseRepository, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("github token is required")
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid repository: %q/%q", owner, repo)
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: strings.TrimSpace(token)},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	return &githubRepository{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
	}, nil
}

// CreateRelease creates a release for an existing tag and returns its URL.
func (r *githubRepository) CreateRelease(ctx context.Context, release domain.Release) (string, error) {
	created, _, err := r.client.Repositories.CreateRelease(ctx, r.owner, r.repo, &github.RepositoryRelease{
		TagName: github.Ptr(release.Tag),
		Name:    github.Ptr(release.Name()),
		Body:    github.Ptr(release.Notes()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create release %s: %w", release.Tag, err)
	}
	return created.GetHTMLURL(), nil
}

type githubNoopRepository struct{}

// NewGithubNoopRepository returns a ReleaseRepository that creates nothing.
func NewGithubNoopRepository() ReleaseRepository {
	return githubNoopRepository{}
}

func (githubNoopRepository) CreateRelease(_ context.Context, _ domain.Release) (string, error) {
	return "", ErrReleaseNotifierDisabled
}

// ParseGitHubRemote extracts owner and repository from a GitHub remote URL.
func ParseGitHubRemote(remoteURL string) (string, string, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(remoteURL), ".git")
	var path string
	switch {
	case strings.HasPrefix(trimmed, "git@"):
		_, after, ok := strings.Cut(trimmed, ":")
		if !ok {
			return "", "", fmt.Errorf("unsupported remote url: %s", remoteURL)
		}
		path = after
	case strings.HasPrefix(trimmed, "https://"), strings.HasPrefix(trimmed, "http://"):
		_, rest, _ := strings.Cut(trimmed, "://")
		_, after, ok := strings.Cut(rest, "/")
		if !ok {
			return "", "", fmt.Errorf("unsupported remote url: %s", remoteURL)
		}
		path = after
	default:
		return "", "", fmt.Errorf("unsupported remote url: %s", remoteURL)
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("unsupported remote url: %s", remoteURL)
	}
	return parts[0], parts[1], nil
}

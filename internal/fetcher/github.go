package fetcher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.github.com"

// GitHub fetches repository context from the GitHub REST API.
type GitHub struct {
	apiBase      string
	defaultToken string
	httpClient   *http.Client
	logger       *slog.Logger
}

// GitHubConfig configures a GitHub fetcher.
type GitHubConfig struct {
	APIBase string
	// Token is used when a request carries no access token of its own.
	Token   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewGitHub creates a GitHub-backed fetcher.
func NewGitHub(cfg GitHubConfig) *GitHub {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GitHub{
		apiBase:      cfg.APIBase,
		defaultToken: cfg.Token,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       cfg.Logger.With("component", "fetcher"),
	}
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
}

type readmeResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Fetch retrieves the recursive file tree (trying main then master) and the
// README. A missing README is tolerated; a missing tree is fatal.
func (g *GitHub) Fetch(ctx context.Context, repo RepoIdentity, token string) (*RepoContext, error) {
	if token == "" {
		token = g.defaultToken
	}

	var fileTree string
	for _, branch := range []string{"main", "master"} {
		url := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", g.apiBase, repo.Owner, repo.Repo, branch)

		var tr treeResponse
		if err := g.getJSON(ctx, url, token, &tr); err != nil {
			g.logger.Warn("file tree fetch failed", "repo", repo.String(), "branch", branch, "error", err)
			continue
		}

		var paths []string
		for _, item := range tr.Tree {
			if item.Type == "blob" {
				paths = append(paths, item.Path)
			}
		}
		if len(paths) > 0 {
			fileTree = strings.Join(paths, "\n")
			g.logger.Info("fetched repository structure", "repo", repo.String(), "branch", branch, "files", len(paths))
			break
		}
	}

	if fileTree == "" {
		return nil, fmt.Errorf("%w: %s", ErrRepoUnavailable, repo.String())
	}

	var readme string
	var rr readmeResponse
	readmeURL := fmt.Sprintf("%s/repos/%s/%s/readme", g.apiBase, repo.Owner, repo.Repo)
	if err := g.getJSON(ctx, readmeURL, token, &rr); err != nil {
		g.logger.Warn("readme fetch failed", "repo", repo.String(), "error", err)
	} else if rr.Content != "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(rr.Content, "\n", ""))
		if err != nil {
			g.logger.Warn("readme decode failed", "repo", repo.String(), "error", err)
		} else {
			readme = string(decoded)
		}
	}

	return &RepoContext{FileTree: fileTree, Readme: readme}, nil
}

func (g *GitHub) getJSON(ctx context.Context, url, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

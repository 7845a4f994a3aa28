package fetcher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseRepo(t *testing.T) {
	cases := []struct {
		in      string
		want    RepoIdentity
		wantErr bool
	}{
		{"https://github.com/acme/foo", RepoIdentity{"acme", "foo"}, false},
		{"https://github.com/acme/foo.git", RepoIdentity{"acme", "foo"}, false},
		{"https://github.com/acme/foo/", RepoIdentity{"acme", "foo"}, false},
		{"git@github.com:acme/foo.git", RepoIdentity{"acme", "foo"}, false},
		{"acme/foo", RepoIdentity{"acme", "foo"}, false},
		{"not-a-repo", RepoIdentity{}, true},
		{"", RepoIdentity{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRepo(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Errorf("ParseRepo(%q) expected error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRepo(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseRepo(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestGitHubFetch(t *testing.T) {
	t.Run("falls back to master and decodes readme", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/repos/acme/foo/git/trees/main":
				w.WriteHeader(http.StatusNotFound)
			case "/repos/acme/foo/git/trees/master":
				json.NewEncoder(w).Encode(map[string]any{
					"tree": []map[string]any{
						{"path": "main.go", "type": "blob"},
						{"path": "internal", "type": "tree"},
						{"path": "internal/app/app.go", "type": "blob"},
					},
				})
			case "/repos/acme/foo/readme":
				json.NewEncoder(w).Encode(map[string]any{
					"content":  base64.StdEncoding.EncodeToString([]byte("# Foo\n")),
					"encoding": "base64",
				})
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer srv.Close()

		g := NewGitHub(GitHubConfig{APIBase: srv.URL})
		rc, err := g.Fetch(context.Background(), RepoIdentity{"acme", "foo"}, "")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if rc.FileTree != "main.go\ninternal/app/app.go" {
			t.Errorf("FileTree = %q, want blobs only", rc.FileTree)
		}
		if rc.Readme != "# Foo\n" {
			t.Errorf("Readme = %q", rc.Readme)
		}
	})

	t.Run("empty tree is fatal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		g := NewGitHub(GitHubConfig{APIBase: srv.URL})
		_, err := g.Fetch(context.Background(), RepoIdentity{"acme", "gone"}, "")
		if !errors.Is(err, ErrRepoUnavailable) {
			t.Errorf("error = %v, want ErrRepoUnavailable", err)
		}
	})

	t.Run("missing readme is tolerated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/repos/acme/foo/git/trees/main" {
				json.NewEncoder(w).Encode(map[string]any{
					"tree": []map[string]any{{"path": "main.go", "type": "blob"}},
				})
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		g := NewGitHub(GitHubConfig{APIBase: srv.URL})
		rc, err := g.Fetch(context.Background(), RepoIdentity{"acme", "foo"}, "")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if rc.Readme != "" {
			t.Errorf("Readme = %q, want empty", rc.Readme)
		}
	})

	t.Run("sends auth token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "token secret" {
				t.Errorf("auth header = %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"tree": []map[string]any{{"path": "main.go", "type": "blob"}},
			})
		}))
		defer srv.Close()

		g := NewGitHub(GitHubConfig{APIBase: srv.URL})
		if _, err := g.Fetch(context.Background(), RepoIdentity{"acme", "foo"}, "secret"); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	})
}

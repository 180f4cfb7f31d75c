// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPackagecloudURL is the public packagecloud.io API endpoint.
const DefaultPackagecloudURL = "https://packagecloud.io"

// PackagecloudUploader pushes packages through the packagecloud.io REST API.
type PackagecloudUploader struct {
	BaseURL    string
	User       string
	Token      string
	HTTPClient *http.Client

	mu      sync.Mutex
	distros map[string]int
}

// NewPackagecloudUploader returns an uploader authenticating as user.
func NewPackagecloudUploader(baseURL, user, token string) *PackagecloudUploader {
	if baseURL == "" {
		baseURL = DefaultPackagecloudURL
	}
	return &PackagecloudUploader{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		User:       user,
		Token:      token,
		HTTPClient: http.DefaultClient,
	}
}

type distributionList map[string][]struct {
	IndexName string `json:"index_name"`
	Versions  []struct {
		ID        int    `json:"id"`
		IndexName string `json:"index_name"`
	} `json:"versions"`
}

// DistroVersionID resolves a distribution such as "el/7" or "ubuntu/trusty"
// to packagecloud's numeric id. The distribution list is fetched once.
func (u *PackagecloudUploader) DistroVersionID(ctx context.Context, distro string) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.distros == nil {
		var list distributionList
		if err := u.getJSON(ctx, "/api/v1/distributions.json", &list); err != nil {
			return 0, fmt.Errorf("list distributions: %w", err)
		}
		ids := make(map[string]int)
		for _, dists := range list {
			for _, d := range dists {
				for _, v := range d.Versions {
					ids[d.IndexName+"/"+v.IndexName] = v.ID
				}
			}
		}
		u.distros = ids
	}

	id, ok := u.distros[distro]
	if !ok {
		return 0, fmt.Errorf("unknown distribution %q", distro)
	}
	return id, nil
}

// Upload implements Uploader.
func (u *PackagecloudUploader) Upload(ctx context.Context, up Upload) error {
	id, err := u.DistroVersionID(ctx, up.Distro)
	if err != nil {
		return err
	}

	f, err := os.Open(up.Artifact.Path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, id, up.Artifact.Name, f))
	}()

	endpoint := u.BaseURL + "/api/v1/repos/" + u.repoPath(up.Repo) + "/packages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth(u.Token, "")

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// repoPath accepts "repo" (owned by the uploader's user) or "user/repo".
func (u *PackagecloudUploader) repoPath(repo string) string {
	if user, name, ok := strings.Cut(repo, "/"); ok {
		return url.PathEscape(user) + "/" + url.PathEscape(name)
	}
	return url.PathEscape(u.User) + "/" + url.PathEscape(repo)
}

func writeMultipart(mw *multipart.Writer, distroID int, name string, body io.Reader) error {
	if err := mw.WriteField("package[distro_version_id]", strconv.Itoa(distroID)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("package[package_file]", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, body); err != nil {
		return err
	}
	return mw.Close()
}

func (u *PackagecloudUploader) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(u.Token, "")
	req.Header.Set("Accept", "application/json")

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("packagecloud: %s", resp.Status)
	}
	return fmt.Errorf("packagecloud: %s: %s", resp.Status, msg)
}

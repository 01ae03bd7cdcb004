package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-retryablehttp"
)

// LatestTag is used when the registry has no usable version tags.
const LatestTag = "latest"

var versionTagPattern = regexp.MustCompile(`^\d+\.\d+\.\d+`)

// RegistryClient talks to an OCI distribution registry with anonymous pull tokens.
type RegistryClient struct {
	baseURL    string
	repository string
	http       *retryablehttp.Client
}

// NewRegistryClient creates a client for repository (e.g. "drizzle-team/gateway") on baseURL.
func NewRegistryClient(baseURL, repository string, client *retryablehttp.Client) *RegistryClient {
	return &RegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		repository: repository,
		http:       client,
	}
}

// Token requests an anonymous pull token for the repository.
func (r *RegistryClient) Token(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/token?scope=%s", r.baseURL, url.QueryEscape("repository:"+r.repository+":pull"))

	var body struct {
		Token string `json:"token"`
	}
	if err := r.getJSON(ctx, endpoint, "", &body); err != nil {
		return "", fmt.Errorf("registry token: %w", err)
	}
	return body.Token, nil
}

// Tags lists all tags of the repository. token may be empty.
func (r *RegistryClient) Tags(ctx context.Context, token string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/v2/%s/tags/list", r.baseURL, r.repository)

	var body struct {
		Tags []string `json:"tags"`
	}
	if err := r.getJSON(ctx, endpoint, token, &body); err != nil {
		return nil, fmt.Errorf("registry tags: %w", err)
	}
	return body.Tags, nil
}

// LatestVersion returns the highest version tag, or LatestTag when the lookup
// fails or no tag looks like a version.
func (r *RegistryClient) LatestVersion(ctx context.Context) (string, error) {
	token, err := r.Token(ctx)
	if err != nil {
		return LatestTag, err
	}
	tags, err := r.Tags(ctx, token)
	if err != nil {
		return LatestTag, err
	}
	return SelectLatest(tags), nil
}

func (r *RegistryClient) getJSON(ctx context.Context, endpoint, token string, out interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SelectLatest filters tags to those starting with MAJOR.MINOR.PATCH and
// returns the highest one, or LatestTag if none qualify.
func SelectLatest(tags []string) string {
	var candidates []string
	for _, tag := range tags {
		if versionTagPattern.MatchString(tag) {
			candidates = append(candidates, tag)
		}
	}
	if len(candidates) == 0 {
		return LatestTag
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return compareVersions(candidates[i], candidates[j]) > 0
	})
	return candidates[0]
}

// compareVersions orders by semver when both tags parse, falling back to a
// numeric-aware string comparison.
func compareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return naturalCompare(a, b)
}

// naturalCompare compares strings treating runs of digits as numbers, so "1.10.0" > "1.9.0".
func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ra, rb := rune(a[0]), rune(b[0])
		if unicode.IsDigit(ra) && unicode.IsDigit(rb) {
			na, restA := splitDigits(a)
			nb, restB := splitDigits(b)
			na = strings.TrimLeft(na, "0")
			nb = strings.TrimLeft(nb, "0")
			if len(na) != len(nb) {
				return cmpInt(len(na), len(nb))
			}
			if c := strings.Compare(na, nb); c != 0 {
				return c
			}
			a, b = restA, restB
			continue
		}
		la, lb := unicode.ToLower(ra), unicode.ToLower(rb)
		if la != lb {
			return cmpInt(int(la), int(lb))
		}
		a, b = a[1:], b[1:]
	}
	return cmpInt(len(a), len(b))
}

func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

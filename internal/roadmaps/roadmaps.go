// Package roadmaps is the allow-list of learning paths that completion-service
// answers may recommend. The catalogue ships embedded and can be extended by
// crawling the roadmap.sh index page.
package roadmaps

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/openpay/internal/fetch"
)

// BaseURL prefixes every catalogue entry.
const BaseURL = "https://roadmap.sh/"

//go:embed catalog.json
var catalogJSON []byte

// Entry is one learning path.
type Entry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Catalog is a concurrency-safe allow-list of learning paths.
type Catalog struct {
	mu     sync.RWMutex
	roles  []Entry
	skills []Entry
	urls   map[string]struct{}
}

// Load parses a catalogue document of the form {"roles": [...], "skills": [...]}.
func Load(data []byte) (*Catalog, error) {
	var doc struct {
		Roles  []Entry `json:"roles"`
		Skills []Entry `json:"skills"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse roadmap catalogue: %w", err)
	}

	c := &Catalog{urls: make(map[string]struct{})}
	for _, e := range doc.Roles {
		c.add(&c.roles, e)
	}
	for _, e := range doc.Skills {
		c.add(&c.skills, e)
	}
	return c, nil
}

// Default returns a fresh copy of the embedded catalogue.
func Default() *Catalog {
	c, err := Load(catalogJSON)
	if err != nil {
		panic(err)
	}
	return c
}

// add appends e to list unless its URL is already known; the caller holds mu or owns c.
func (c *Catalog) add(list *[]Entry, e Entry) bool {
	key := canonical(e.URL)
	if key == "" {
		return false
	}
	if _, ok := c.urls[key]; ok {
		return false
	}
	c.urls[key] = struct{}{}
	*list = append(*list, Entry{Name: strings.TrimSpace(e.Name), URL: key})
	return true
}

// Roles returns the role-oriented paths.
func (c *Catalog) Roles() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Entry(nil), c.roles...)
}

// Skills returns the technology-oriented paths.
func (c *Catalog) Skills() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Entry(nil), c.skills...)
}

// Len returns the number of paths.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.urls)
}

// Contains reports whether u is in the allow-list.
func (c *Catalog) Contains(u string) bool {
	key := canonical(u)
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.urls[key]
	return ok
}

// Filter keeps the URLs present in the allow-list, in order and without duplicates.
func (c *Catalog) Filter(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		key := canonical(u)
		if _, dup := seen[key]; dup || !c.Contains(key) {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// PromptList renders the catalogue as the bullet list embedded in prompts.
func (c *Catalog) PromptList() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("Par rôle :\n")
	for _, e := range c.roles {
		fmt.Fprintf(&sb, "  • %s → %s\n", e.Name, e.URL)
	}
	sb.WriteString("Par compétence :\n")
	for _, e := range c.skills {
		fmt.Fprintf(&sb, "  • %s → %s\n", e.Name, e.URL)
	}
	return strings.TrimRight(sb.String(), "\n")
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// sitePages are roadmap.sh links that are not learning paths.
var sitePages = map[string]bool{
	"about": true, "account": true, "ai": true, "best-practices": true, "changelog": true,
	"community": true, "get-started": true, "guides": true, "login": true, "pricing": true,
	"privacy": true, "projects": true, "questions": true, "roadmaps": true, "signup": true,
	"teams": true, "terms": true, "videos": true,
}

// Refresh crawls pageURL and adds every learning path it links to as a skill entry.
// It returns the number of new entries.
func (c *Catalog) Refresh(ctx context.Context, pageURL string, opts *fetch.Options) (int, error) {
	res, err := fetch.Get(ctx, pageURL, opts)
	if err != nil {
		return 0, err
	}

	found, err := ExtractPaths(res.Body, pageURL)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for _, e := range found {
		if c.add(&c.skills, e) {
			added++
		}
	}
	return added, nil
}

// ExtractPaths returns the learning-path links of an index page. Relative links
// resolve against pageURL; only the page's own host and roadmap.sh are followed.
func ExtractPaths(html []byte, pageURL string) ([]Entry, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid page URL %q", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse roadmap index: %w", err)
	}

	var entries []Entry
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(link)
		if abs.Host != base.Host && abs.Host != "roadmap.sh" {
			return
		}

		slug := strings.Trim(abs.Path, "/")
		if !slugPattern.MatchString(slug) || sitePages[slug] || seen[slug] {
			return
		}
		seen[slug] = true

		name := strings.Join(strings.Fields(s.Text()), " ")
		if name == "" {
			name = slug
		}
		entries = append(entries, Entry{Name: name, URL: BaseURL + slug})
	})
	return entries, nil
}

// canonical trims whitespace and a trailing slash; non roadmap.sh URLs yield "".
func canonical(u string) string {
	u = strings.TrimSuffix(strings.TrimSpace(u), "/")
	if !strings.HasPrefix(u, BaseURL) || len(u) == len(BaseURL) {
		return ""
	}
	return u
}

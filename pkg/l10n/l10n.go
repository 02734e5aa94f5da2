// Package l10n resolves the module's translation catalog and formats dates
// for the console's locale.
package l10n

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/text/language"
)

// URL builds the location of the locale's translation file. The admin
// service URI is expected to end with a slash.
func URL(origin, prefix, adminServiceURI, locale string) string {
	return origin + Path(prefix, adminServiceURI) + locale + ".json"
}

// Path is the directory path under which <locale>.json files are served.
func Path(prefix, adminServiceURI string) string {
	return prefix + adminServiceURI + "js/l10n/"
}

// NormalizeLocale turns POSIX locale names such as "zh_TW.UTF-8" into BCP 47
// tags. Unusable values fall back to "en".
func NormalizeLocale(s string) string {
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	if s == "" || s == "C" || s == "POSIX" {
		return "en"
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "en"
	}
	return tag.String()
}

// DetectLocale reads the locale from the usual environment variables.
func DetectLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return NormalizeLocale(v)
		}
	}
	return "en"
}

// Catalog maps translation keys to localized strings. Nested objects in the
// source file are flattened with dots ("oPaginate.sNext").
type Catalog map[string]string

// T returns the translation of key, or key itself when there is none.
func (c Catalog) T(key string) string {
	if v, ok := c[key]; ok && v != "" {
		return v
	}
	return key
}

// Merge returns a new catalog with other's entries overriding c's.
func (c Catalog) Merge(other Catalog) Catalog {
	out := make(Catalog, len(c)+len(other))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Parse decodes a JSON translation file.
func Parse(data []byte) (Catalog, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c := make(Catalog)
	flatten(c, "", raw)
	return c, nil
}

func flatten(dst Catalog, prefix string, src map[string]any) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case string:
			dst[key] = v
		case map[string]any:
			flatten(dst, key, v)
		case nil:
		default:
			dst[key] = fmt.Sprint(v)
		}
	}
}

// Load fetches and parses the translation file at url.
func Load(ctx context.Context, client *http.Client, url string) (Catalog, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return Parse(data)
}

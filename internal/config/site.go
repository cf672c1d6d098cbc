package config

// SiteConfig holds site-specific scrape settings for a single news domain.
// Some outlets require a consent cookie or custom headers before serving
// article content.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when fetching articles from this
	// site. Format: "name=value" or "name1=value1; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MinContentLength overrides the minimum character count for a text
	// block to be treated as article content. Zero means the default.
	MinContentLength int `yaml:"minContentLength,omitempty"`
}

// File represents the structure of the .factlens configuration file.
type File struct {
	// Sites maps news domains to their site-specific settings.
	// Keys are bare domains without protocol (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains settings applied to every site unless overridden
	// by a site-specific entry.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for a specific domain, merging the
// site-specific entry over the defaults.
func (cf *File) GetSiteConfig(domain string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[domain]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.MinContentLength != 0 {
			result.MinContentLength = siteConfig.MinContentLength
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}

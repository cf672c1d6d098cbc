package scrape

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/factlens/factlens/internal/config"
)

// skipImageSrcKeywords marks boilerplate images by URL substring:
// logos, store badges, and messenger icons carry no story content.
var skipImageSrcKeywords = []string{
	"logo", "app-store", "google-play", "inbox", "whatsapp",
}

// skipImageAltValues marks boilerplate images by exact alt text.
var skipImageAltValues = map[string]bool{
	"logo":     true,
	"app-get":  true,
	"whatsapp": true,
	"inbox":    true,
}

// articleContainers are elements whose descendants count as article
// content. Class-based detection below supplements these for sites that
// render everything in divs.
var articleContainers = map[string]bool{
	"article": true,
	"main":    true,
}

// articleClassHints are class-name substrings that mark a div as article
// content.
var articleClassHints = []string{"article", "story", "post-content", "entry-content"}

// ignoredElements never contribute text or images.
var ignoredElements = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"header": true,
	"footer": true,
	"aside":  true,
	"form":   true,
}

// TextBlock is one extracted paragraph of article text.
type TextBlock struct {
	// Text is the paragraph content with whitespace collapsed.
	Text string

	// CharacterCount is len(Text), precomputed for summary statistics.
	CharacterCount int
}

// ExtractedImage is one image discovered in the page.
type ExtractedImage struct {
	// Src is the absolute image URL.
	Src string

	// Alt is the image's alt text.
	Alt string

	// Context is the text surrounding the image: its figcaption if
	// present, otherwise the nearest sibling paragraph.
	Context string

	// InArticle indicates the image sits inside article content rather
	// than page chrome.
	InArticle bool
}

// ExtractResult is the outcome of extracting one page.
type ExtractResult struct {
	// Title is the page title.
	Title string

	// Blocks are the extracted article paragraphs.
	Blocks []TextBlock

	// Images are all discovered images, including out-of-article ones.
	Images []ExtractedImage

	// Quality estimates extraction quality in [0, 1] from the volume of
	// article text recovered.
	Quality float64
}

// Extractor pulls article content out of fetched HTML.
//
// Design decision: We use golang.org/x/net/html rather than regex
// because it correctly handles the malformed markup common on news
// sites and gives a proper DOM to resolve image context from.
type Extractor struct {
	// minContentLength is the minimum character count for a text block
	// to count as article content rather than navigation chrome.
	minContentLength int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMinContentLength sets the minimum text block length.
func WithMinContentLength(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.minContentLength = n
		}
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		minContentLength: config.DefaultMinContentLength,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extract parses the page and collects title, text blocks, and images.
// Relative image URLs are resolved against baseURL.
func (e *Extractor) Extract(body []byte, baseURL string) (*ExtractResult, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %s: %w", baseURL, err)
	}

	result := &ExtractResult{}
	e.walk(doc, base, false, result)
	result.Quality = extractionQuality(result.Blocks)
	return result, nil
}

// walk traverses the DOM collecting title, paragraphs, and images.
// inArticle tracks whether the current subtree sits inside an article
// container.
func (e *Extractor) walk(n *html.Node, base *url.URL, inArticle bool, result *ExtractResult) {
	if n.Type == html.ElementNode {
		if ignoredElements[n.Data] {
			return
		}

		switch {
		case n.Data == "title" && result.Title == "":
			result.Title = collapseWhitespace(textContent(n))
			return

		case articleContainers[n.Data] || isArticleDiv(n):
			inArticle = true

		case n.Data == "p" || n.Data == "h1" || n.Data == "h2":
			text := collapseWhitespace(textContent(n))
			if len(text) >= e.minContentLength && inArticle {
				result.Blocks = append(result.Blocks, TextBlock{
					Text:           text,
					CharacterCount: len(text),
				})
			}
			// Paragraphs still may contain inline images; fall through
			// to children via the loop below.

		case n.Data == "img":
			if img, ok := extractImage(n, base, inArticle); ok {
				result.Images = append(result.Images, img)
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.walk(c, base, inArticle, result)
	}
}

// isArticleDiv reports whether a div's class names hint article content.
func isArticleDiv(n *html.Node) bool {
	if n.Data != "div" && n.Data != "section" {
		return false
	}
	class := strings.ToLower(attrValue(n, "class"))
	if class == "" {
		return false
	}
	for _, hint := range articleClassHints {
		if strings.Contains(class, hint) {
			return true
		}
	}
	return false
}

// extractImage builds an ExtractedImage from an img node, resolving the
// source URL and finding surrounding context text.
func extractImage(n *html.Node, base *url.URL, inArticle bool) (ExtractedImage, bool) {
	src := attrValue(n, "src")
	if src == "" {
		// Lazy-loading sites put the real URL in data-src.
		src = attrValue(n, "data-src")
	}
	if src == "" || strings.HasPrefix(src, "data:") {
		return ExtractedImage{}, false
	}

	resolved, err := base.Parse(src)
	if err != nil {
		return ExtractedImage{}, false
	}

	return ExtractedImage{
		Src:       resolved.String(),
		Alt:       collapseWhitespace(attrValue(n, "alt")),
		Context:   imageContext(n),
		InArticle: inArticle,
	}, true
}

// imageContext finds the text nearest to an image: the figcaption of an
// enclosing figure, otherwise an adjacent paragraph.
func imageContext(img *html.Node) string {
	// Enclosing figure's caption wins.
	for p := img.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "figure" {
			if caption := findChild(p, "figcaption"); caption != nil {
				return collapseWhitespace(textContent(caption))
			}
			break
		}
	}

	// Otherwise the closest sibling paragraph, preferring the one after
	// the image since captions usually follow.
	for _, sibling := range []*html.Node{nextElement(img), prevElement(img)} {
		if sibling != nil && (sibling.Data == "p" || sibling.Data == "figcaption" || sibling.Data == "span") {
			if text := collapseWhitespace(textContent(sibling)); text != "" {
				return text
			}
		}
	}
	return ""
}

// IsBoilerplate reports whether the image is site chrome rather than
// story content.
func (img ExtractedImage) IsBoilerplate() bool {
	srcLower := strings.ToLower(img.Src)
	for _, keyword := range skipImageSrcKeywords {
		if strings.Contains(srcLower, keyword) {
			return true
		}
	}
	return skipImageAltValues[strings.ToLower(img.Alt)]
}

// extractionQuality estimates quality from text volume: full marks at
// ten blocks and two thousand characters.
func extractionQuality(blocks []TextBlock) float64 {
	if len(blocks) == 0 {
		return 0
	}

	var chars int
	for _, b := range blocks {
		chars += b.CharacterCount
	}

	blockScore := float64(len(blocks)) / 10
	if blockScore > 1 {
		blockScore = 1
	}
	charScore := float64(chars) / 2000
	if charScore > 1 {
		charScore = 1
	}
	return round2(blockScore*0.5 + charScore*0.5)
}

// round2 rounds to two decimal places.
func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// textContent returns the concatenated text of a subtree, skipping
// script and style nodes.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			return
		}
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

// collapseWhitespace trims and collapses runs of whitespace to single
// spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// attrValue returns the value of the named attribute, or empty string.
func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findChild returns the first child element with the given tag name.
func findChild(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
}

// nextElement returns the next sibling that is an element node.
func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// prevElement returns the previous sibling that is an element node.
func prevElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

package site

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"biblegen/internal/domain"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURL struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap lists the root, each version index and every chapter page in
// sorted order.
func (g *Generator) Sitemap(corpus domain.Corpus) ([]byte, error) {
	set := urlSet{XMLNS: sitemapNS}
	set.URLs = append(set.URLs, sitemapURL{Loc: g.opts.BaseURL + "/", ChangeFreq: "weekly", Priority: "1.0"})

	for _, version := range corpus.Versions() {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        g.opts.BaseURL + "/" + bibleDir + "/" + version + "/",
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})

		chapters := make([]domain.Chapter, 0, len(corpus[version]))
		for _, ch := range corpus[version] {
			chapters = append(chapters, ch)
		}
		sort.Slice(chapters, func(i, j int) bool {
			if chapters[i].Book != chapters[j].Book {
				return chapters[i].Book < chapters[j].Book
			}
			return chapters[i].Number < chapters[j].Number
		})
		for _, ch := range chapters {
			set.URLs = append(set.URLs, sitemapURL{
				Loc:        g.opts.BaseURL + ChapterURL(version, ch.Book, ch.Number),
				ChangeFreq: "monthly",
				Priority:   "0.6",
			})
		}
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

func (g *Generator) WriteSitemap(corpus domain.Corpus) (string, error) {
	data, err := g.Sitemap(corpus)
	if err != nil {
		return "", fmt.Errorf("failed to build sitemap: %w", err)
	}
	p := filepath.Join(g.dir, "sitemap.xml")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write sitemap.xml: %w", err)
	}
	return p, nil
}

func (g *Generator) WriteRobots() (string, error) {
	content := "User-agent: *\nAllow: /\n\nSitemap: " + g.opts.BaseURL + "/sitemap.xml\n"
	p := filepath.Join(g.dir, "robots.txt")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write robots.txt: %w", err)
	}
	return p, nil
}

package main

import (
	"net/http"
	"time"

	"github.com/aquilax/sitetree/node"
	"github.com/gorilla/feeds"
	"github.com/sourcegraph/sitemap"
)

func getUrl(baseURL string, n node.Node) string {
	switch n.Family {
	case node.FamilyPage:
		return baseURL + "/" + n.Slug + ".html"
	case node.FamilyContent:
		return baseURL + "/content/" + n.Slug + ".html"
	default:
		return baseURL + "/" + n.Family + "/" + n.ID + "/" + hfSlug(n.Title)
	}
}

func publishedAt(n node.Node) time.Time {
	if n.PublishedAt != nil {
		return *n.PublishedAt
	}
	return n.Created
}

func (l *SiteTree) feedHandler(w http.ResponseWriter, r *http.Request) error {
	site := siteFrom(r)
	sc := site.sc
	nodes, err := l.m.Published(r.Context(), node.FamilyArticle, sc.SiteID, feedItems)
	if err != nil {
		return err
	}
	baseURL := site.baseURL(r)
	feed := &feeds.Feed{
		Title:       sc.Title,
		Link:        &feeds.Link{Href: baseURL},
		Description: sc.Description,
		Author:      &feeds.Author{Name: sc.AuthorName, Email: sc.AuthorEmail},
		Created:     time.Now(),
	}
	for _, n := range nodes {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          n.ID,
			Title:       n.Title,
			Link:        &feeds.Link{Href: getUrl(baseURL, n)},
			Description: n.Rendered,
			Author:      &feeds.Author{Name: n.Author},
			Created:     publishedAt(n),
			Updated:     n.Updated,
		})
	}
	w.Header().Set("Content-Type", "application/rss+xml")
	return feed.WriteRss(w)
}

func (l *SiteTree) sitemapHandler(w http.ResponseWriter, r *http.Request) error {
	site := siteFrom(r)
	baseURL := site.baseURL(r)
	var urlSet sitemap.URLSet
	for _, family := range []string{node.FamilyPage, node.FamilyContent} {
		nodes, err := l.m.Published(r.Context(), family, site.sc.SiteID, sitemapItems)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			updated := n.Updated
			urlSet.URLs = append(urlSet.URLs, sitemap.URL{
				Loc:        getUrl(baseURL, n),
				LastMod:    &updated,
				ChangeFreq: sitemap.Weekly,
				Priority:   0.7,
			})
		}
	}
	xml, err := sitemap.Marshal(&urlSet)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xml")
	_, err = w.Write(xml)
	return err
}

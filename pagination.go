package main

import (
	"math"
	"net/url"
	"strconv"

	"github.com/aquilax/sitetree/node"
)

type Page struct {
	Num int    `json:"num"`
	URL string `json:"url,omitempty"`
}

type Pages []Page

type PaginationConfig struct {
	ipp   int
	page  int
	total int
	url   string
	param string
}

func Pagination(pc PaginationConfig) Pages {
	pCount := int(math.Ceil(float64(pc.total) / float64(pc.ipp)))
	if pc.total <= pc.ipp {
		return make(Pages, 0)
	}
	pages := make(Pages, pCount)
	// Normalize first page
	if pc.page == 0 {
		pc.page = 1
	}
	pUrl, _ := url.Parse(pc.url)
	val := pUrl.Query()

	for i := 1; i <= pCount; i++ {
		// Don't set the url for the current page
		tURL := ""
		if i != pc.page {
			val.Set(pc.param, strconv.Itoa(i))
			pUrl.RawQuery = val.Encode()
			tURL = pUrl.String()
		}
		pages[i-1] = Page{i, tURL}
	}
	return pages
}

// paginate returns the 0-based page of nl.
func paginate(nl node.NodeList, page, ipp int) node.NodeList {
	start := page * ipp
	if start < 0 || start >= len(nl) {
		return node.NodeList{}
	}
	end := start + ipp
	if end > len(nl) {
		end = len(nl)
	}
	return nl[start:end]
}

func getPageNumber(pageStr string) int {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return 0
	}
	return page - 1
}

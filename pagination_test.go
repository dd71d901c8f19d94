package main

import (
	"reflect"
	"testing"

	"github.com/aquilax/sitetree/node"
)

func TestPagination(t *testing.T) {
	tests := []struct {
		name string
		pc   PaginationConfig
		want Pages
	}{
		{
			name: "returns empty list if total = 0",
			pc: PaginationConfig{
				ipp:   10,
				page:  0,
				total: 0,
			},
			want: Pages{},
		},
		{
			name: "returns empty list if total < ipp",
			pc: PaginationConfig{
				ipp:   10,
				page:  0,
				total: 3,
			},
			want: Pages{},
		},
		{
			name: "returns correct number of pages",
			pc: PaginationConfig{
				ipp:   10,
				page:  0,
				total: 13,
				url:   "http://example.com",
				param: "page",
			},
			want: Pages{
				Page{1, ""},
				Page{2, "http://example.com?page=2"},
			},
		},
		{
			name: "keeps the other query parameters",
			pc: PaginationConfig{
				ipp:   2,
				page:  2,
				total: 5,
				url:   "/api/menu/nodes?parent=x",
				param: "page",
			},
			want: Pages{
				Page{1, "/api/menu/nodes?page=1&parent=x"},
				Page{2, ""},
				Page{3, "/api/menu/nodes?page=3&parent=x"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Pagination(tt.pc); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Pagination() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	nl := node.NodeList{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	tests := []struct {
		page int
		want []node.NodeID
	}{
		{0, []node.NodeID{"a", "b"}},
		{1, []node.NodeID{"c"}},
		{2, []node.NodeID{}},
		{-1, []node.NodeID{}},
	}
	for _, tt := range tests {
		if got := paginate(nl, tt.page, 2).IDs(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("paginate(page %d) = %v, want %v", tt.page, got, tt.want)
		}
	}
}

func TestGetPageNumber(t *testing.T) {
	tests := map[string]int{"": 0, "1": 0, "3": 2, "x": 0, "-4": 0}
	for in, want := range tests {
		if got := getPageNumber(in); got != want {
			t.Errorf("getPageNumber(%q) = %d, want %d", in, got, want)
		}
	}
}

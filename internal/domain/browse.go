package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ProductFilter narrows a product search. Terms are folded with FoldText
// and must all appear in the product name.
type ProductFilter struct {
	Terms    []string
	Category string // Substring of the category, empty for any
}

// Matches reports whether p satisfies the filter
func (f ProductFilter) Matches(p Product) bool {
	if f.Category != "" && !strings.Contains(FoldText(p.Category), FoldText(f.Category)) {
		return false
	}
	name := FoldText(p.Name)
	for _, term := range f.Terms {
		if !strings.Contains(name, term) {
			return false
		}
	}
	return true
}

// FoldText lowercases s and strips diacritics, so "Açúcar" becomes "acucar"
func FoldText(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// CategoryCount is a product category with the number of products in it
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PopularProduct is a product with the number of in-stock offers it has
type PopularProduct struct {
	Product
	OffersCount int `json:"offers_count"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// NewPagination computes the page count; an empty listing still has one page
func NewPagination(page, perPage, total int) Pagination {
	pages := 1
	if total > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, Pages: pages}
}

// Window returns the slice bounds of the page within a listing of Total items
func (p Pagination) Window() (start, end int) {
	start = (p.Page - 1) * p.PerPage
	if start > p.Total {
		start = p.Total
	}
	end = start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// ProductPage is one page of product search results
type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// StorePage is one page of the store listing
type StorePage struct {
	Stores     []Store    `json:"stores"`
	Pagination Pagination `json:"pagination"`
}

// NearbyStore is a store with its distance from the search origin
type NearbyStore struct {
	Store
	DistanceKm float64 `json:"distance"`
}

// NearbyStores lists the stores within RadiusKm of Location, closest first
type NearbyStores struct {
	Stores   []NearbyStore `json:"stores"`
	Count    int           `json:"count"`
	Location Location      `json:"location"`
	RadiusKm float64       `json:"radius"`
}

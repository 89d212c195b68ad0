package model

import "strings"

// PriorityPage pairs a site path with its dashboard classification tag.
type PriorityPage struct {
	Path     string `json:"path"`
	PageType string `json:"page_type"`
}

// PageTypeCustom tags URLs supplied by a caller rather than taken from the
// priority list.
const PageTypeCustom = "custom"

// NightlyPageCount is how many entries from the top of PriorityPages the
// nightly audit covers. The weekly audit covers the whole list.
const NightlyPageCount = 10

// PriorityPages is the fixed audit list for the clinic site, highest
// traffic first. Order matters: the first NightlyPageCount entries form
// the nightly subset.
var PriorityPages = []PriorityPage{
	{Path: "/", PageType: "homepage"},
	{Path: "/appointments", PageType: "appointments"},
	{Path: "/services", PageType: "services"},
	{Path: "/services/primary-care", PageType: "service-detail"},
	{Path: "/services/pediatrics", PageType: "service-detail"},
	{Path: "/services/womens-health", PageType: "service-detail"},
	{Path: "/locations/orlando", PageType: "landing-orlando"},
	{Path: "/locations/tampa", PageType: "landing-tampa"},
	{Path: "/providers", PageType: "providers"},
	{Path: "/contact", PageType: "contact"},
	{Path: "/services/telehealth", PageType: "service-detail"},
	{Path: "/services/urgent-care", PageType: "service-detail"},
	{Path: "/services/behavioral-health", PageType: "service-detail"},
	{Path: "/locations/winter-park", PageType: "landing-winter-park"},
	{Path: "/locations/kissimmee", PageType: "landing-kissimmee"},
	{Path: "/insurance", PageType: "insurance"},
	{Path: "/about", PageType: "about"},
	{Path: "/patient-portal", PageType: "patient-portal"},
	{Path: "/new-patients", PageType: "new-patients"},
	{Path: "/blog", PageType: "blog-index"},
	{Path: "/faq", PageType: "faq"},
	{Path: "/careers", PageType: "careers"},
}

// NightlyPages returns the nightly subset of the priority list.
func NightlyPages() []PriorityPage {
	if len(PriorityPages) <= NightlyPageCount {
		return PriorityPages
	}
	return PriorityPages[:NightlyPageCount]
}

// ResolveURL joins a priority-page path to the site's base origin.
func ResolveURL(baseURL, path string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

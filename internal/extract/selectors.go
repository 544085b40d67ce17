// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

// availabilitySelectors locate labelled data/code availability regions on
// journal article pages. Every selector is tried; matches are scanned in
// document order.
var availabilitySelectors = []string{
	// Nature family.
	`div.c-article-section[data-title="Data availability"]`,
	`div.c-article-section[data-title="Code availability"]`,
	`div.c-article-section[data-title="Availability"]`,
	`section[data-title="Data availability"]`,
	// Science.
	`div.section:has(h2:contains("Data Availability"))`,
	`section:has(h2:contains("Data and materials availability"))`,
	// Cell.
	`section.section--data-availability`,
	`div.section[data-section-id="data-availability"]`,
	`div.table-key-resources`,
	`table.e-component-table`,
	// PLOS and generic.
	`[id*="data-availability"]`,
	`[id*="data_availability"]`,
	`[class*="data-availability"]`,
	`h2:contains("Data availability") + div`,
	`h2:contains("DATA AVAILABILITY") + div`,
	`h3:contains("Data availability") + p`,
	`h2:contains("Code availability") + div`,
}

// supplementarySelectors locate explicit supplementary-material anchors.
var supplementarySelectors = []string{
	`a[data-track-action="supplementary information"]`,
	`a[data-track-action="supplementary materials"]`,
	`a.article__toollink--materials`,
	`a.article-tools__item--supplemental`,
	`a.article-tools__supplemental`,
	`div.supplementary-material a[href]`,
}

// supplementaryAnchorText marks any other anchor as supplementary material
// when its text contains it, ignoring case.
const supplementaryAnchorText = "supplementary"

// keywordBlockSelector lists block elements checked for watch-list keywords
// when scanning outside the labelled regions.
const keywordBlockSelector = "p, li, dd, td, figcaption, div, section"

// containerSelector matches blocks that contain other blocks. Containers are
// skipped by the keyword scan so the same text is not scanned once per
// nesting level.
const containerSelector = "p, div, section, table, ul, ol"

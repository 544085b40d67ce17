// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the dataset-engine pipeline:
// dataset references produced by extraction, download results and history
// records produced by the dispatcher, and per-stage configuration.
package types

import (
	"slices"
	"strings"
	"time"
)

// RepositoryTag identifies the platform hosting a dataset. The named constants
// form the closed set the strategy registry knows about; any other value
// (for example a bare domain produced by the classifier as a weak tag) is
// routed to the default strategy chain.
type RepositoryTag string

const (
	RepoFigshare         RepositoryTag = "figshare"
	RepoZenodo           RepositoryTag = "zenodo"
	RepoDryad            RepositoryTag = "dryad"
	RepoOSF              RepositoryTag = "osf"
	RepoGitHub           RepositoryTag = "github"
	RepoGEO              RepositoryTag = "gene expression omnibus"
	RepoGenBank          RepositoryTag = "genbank"
	RepoEBI              RepositoryTag = "ebi"
	RepoNeurodata        RepositoryTag = "neurodata"
	RepoNeuroVault       RepositoryTag = "neurovault"
	RepoOpenNeuro        RepositoryTag = "openneuro"
	RepoBrainMaps        RepositoryTag = "brainmaps"
	RepoAllenBrain       RepositoryTag = "allen brain atlas"
	RepoHCP              RepositoryTag = "human connectome project"
	RepoUKBiobank        RepositoryTag = "uk biobank"
	RepoNCBI             RepositoryTag = "ncbi"
	RepoHarvardDataverse RepositoryTag = "harvard dataverse"
	RepoDataverse        RepositoryTag = "dataverse"
	RepoIEEEDataport     RepositoryTag = "ieee dataport"
	RepoKaggle           RepositoryTag = "kaggle"
	RepoCRCNS            RepositoryTag = "crcns"
	RepoNeuroMorpho      RepositoryTag = "neuromorpho"
	RepoHuggingFace      RepositoryTag = "huggingface"
	RepoCodeOcean        RepositoryTag = "codeocean"
	RepoMendeley         RepositoryTag = "mendeley data"
	RepoSynapse          RepositoryTag = "synapse"
	RepoDANDI            RepositoryTag = "dandi"
	RepoEBRAINS          RepositoryTag = "ebrains"
	RepoGIN              RepositoryTag = "gin"
	RepoGoogleDrive      RepositoryTag = "google drive"
	RepoDOI              RepositoryTag = "doi"
	RepoSupplementary    RepositoryTag = "journal_supplementary"
	RepoWebsite          RepositoryTag = "website"
	RepoUnknown          RepositoryTag = "unknown"
	RepoGEOSeries        RepositoryTag = "GEO Series"
	RepoGEOSample        RepositoryTag = "GEO Sample"
	RepoSRA              RepositoryTag = "SRA"
	RepoBioProject       RepositoryTag = "BioProject"
	RepoBioSample        RepositoryTag = "BioSample"
	RepoArrayExpress     RepositoryTag = "ArrayExpress"
	RepoENA              RepositoryTag = "ENA"
	RepoDDBJ             RepositoryTag = "DDBJ"
)

// String returns the tag text.
func (t RepositoryTag) String() string { return string(t) }

// Normalize lower-cases known platform tags so "Figshare" and "figshare"
// resolve to the same registry entry. Accession database tags keep their
// canonical capitalisation.
func (t RepositoryTag) Normalize() RepositoryTag {
	lower := RepositoryTag(strings.ToLower(strings.TrimSpace(string(t))))
	switch lower {
	case "geo series":
		return RepoGEOSeries
	case "geo sample":
		return RepoGEOSample
	case "sra":
		return RepoSRA
	case "bioproject":
		return RepoBioProject
	case "biosample":
		return RepoBioSample
	case "arrayexpress":
		return RepoArrayExpress
	case "ena":
		return RepoENA
	case "ddbj":
		return RepoDDBJ
	case "":
		return RepoWebsite
	}
	return lower
}

// FoundIn records which extraction pass produced a reference.
type FoundIn string

const (
	FoundInLink          FoundIn = "link"
	FoundInLinkKeyword   FoundIn = "link_text_keyword"
	FoundInTextDOI       FoundIn = "text_doi"
	FoundInTextAccession FoundIn = "text_accession"
	FoundInTextURL       FoundIn = "text_url"
	FoundInSupplementary FoundIn = "supplementary"
)

// SourceDocument links a reference back to the paper it was found in. It is
// supplied by the caller and never derived by the extractor.
type SourceDocument struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	DOI   string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Date is the paper's publication date, used by date filters.
	Date time.Time `json:"date,omitempty" yaml:"date,omitempty"`
}

// DatasetReference is a candidate pointer to a dataset found in a document.
// Values are treated as immutable once created by the extractor.
type DatasetReference struct {
	// Name is a human-readable label: link text, or a synthesized
	// "Dataset DOI: …" / "Dataset Accession: …" string.
	Name string `json:"name" yaml:"name"`

	// URL is the absolute landing page or file URL, if known.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Repository is the classifier tag. Never empty; defaults to "website".
	Repository RepositoryTag `json:"repository" yaml:"repository"`

	// DOI is the normalized DOI (no resolver prefix), if any.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Accession is the normalized accession number, if any.
	Accession string `json:"accession,omitempty" yaml:"accession,omitempty"`

	// DataTypes lists domain tags inferred from the surrounding text.
	DataTypes []string `json:"data_types,omitempty" yaml:"data_types,omitempty"`

	// FoundIn records the extraction pass that produced the reference.
	FoundIn FoundIn `json:"found_in,omitempty" yaml:"found_in,omitempty"`

	// Source is the owning paper.
	Source SourceDocument `json:"source_document,omitempty" yaml:"source_document,omitempty"`
}

// Valid reports whether the reference carries at least one retrievable
// identifier.
func (r DatasetReference) Valid() bool {
	return r.URL != "" || r.DOI != "" || r.Accession != ""
}

// HasDataType reports whether any of the given tags is present on the
// reference.
func (r DatasetReference) HasDataType(tags ...string) bool {
	for _, t := range tags {
		if slices.Contains(r.DataTypes, t) {
			return true
		}
	}
	return false
}

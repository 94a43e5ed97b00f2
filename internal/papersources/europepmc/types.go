// Package europepmc provides a search adapter for the Europe PMC REST API.
//
// Europe PMC aggregates life-science literature including PubMed, PMC,
// preprints, and Agricola records. This package implements the
// papersources.SearchSource interface against its JSON search endpoint.
//
// API documentation: https://europepmc.org/RestfulWebService
package europepmc

// SearchResponse is the top-level response from the search endpoint.
type SearchResponse struct {
	HitCount   int        `json:"hitCount"`
	ResultList ResultList `json:"resultList"`
}

// ResultList wraps the list of matching records.
type ResultList struct {
	Result []Record `json:"result"`
}

// Record represents a single record in the Europe PMC result list.
type Record struct {
	ID                   string      `json:"id"`
	Source               string      `json:"source"`
	PMID                 string      `json:"pmid"`
	DOI                  string      `json:"doi"`
	Title                string      `json:"title"`
	AuthorString         string      `json:"authorString"`
	AuthorList           *AuthorList `json:"authorList,omitempty"`
	JournalTitle         string      `json:"journalTitle"`
	PubYear              string      `json:"pubYear"`
	FirstPublicationDate string      `json:"firstPublicationDate"`
	AbstractText         string      `json:"abstractText"`
	PubTypeList          PubTypeList `json:"pubTypeList"`
}

// AuthorList contains structured author records when resultType=core.
type AuthorList struct {
	Author []Author `json:"author"`
}

// Author represents a single structured author record.
type Author struct {
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// PubTypeList contains the publication type labels for a record.
type PubTypeList struct {
	PubType []string `json:"pubType"`
}

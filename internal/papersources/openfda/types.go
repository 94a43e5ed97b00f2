// Package openfda provides a search adapter for the openFDA drug label API.
//
// openFDA exposes FDA regulatory data including structured product labeling.
// This package implements the papersources.SearchSource interface, mapping
// drug label records into candidates so regulatory prescribing information
// can surface alongside journal literature.
//
// API documentation: https://open.fda.gov/apis/drug/label/
package openfda

// LabelResponse is the top-level response from the drug label endpoint.
type LabelResponse struct {
	Meta    Meta    `json:"meta"`
	Results []Label `json:"results"`
}

// Meta contains result metadata.
type Meta struct {
	Results MetaResults `json:"results"`
}

// MetaResults contains pagination counts.
type MetaResults struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Label represents a single structured product label. openFDA returns most
// label sections as arrays of free-text blocks.
type Label struct {
	ID            string   `json:"id"`
	SetID         string   `json:"set_id"`
	EffectiveTime string   `json:"effective_time"`
	OpenFDA       OpenFDA  `json:"openfda"`
	Indications   []string `json:"indications_and_usage"`
	Warnings      []string `json:"warnings"`
	AdverseBlocks []string `json:"adverse_reactions"`
}

// OpenFDA contains the harmonized identifier fields of a label.
type OpenFDA struct {
	BrandName        []string `json:"brand_name"`
	GenericName      []string `json:"generic_name"`
	ManufacturerName []string `json:"manufacturer_name"`
	Route            []string `json:"route"`
}

// ErrorResponse represents an error payload from openFDA.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
